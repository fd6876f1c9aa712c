package app

import (
	"context"
	"errors"
	"testing"

	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"
	"assistance_alerts/internal/infra/memstore/memstoretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

func newAckService(t *testing.T) (*AcknowledgementService, *memstoretest.AcknowledgementRepository) {
	t.Helper()
	repo := memstoretest.NewAcknowledgementRepository()
	svc := NewAcknowledgementService(repo, clock.NewFixed(testNow), testLogger())
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo
}

func seed(t *testing.T, repo *memstoretest.AcknowledgementRepository, loanIDs ...int64) {
	t.Helper()
	set := notification.NewAcknowledgementSet()
	for _, id := range loanIDs {
		set.Add(notification.SourceLoan, id)
	}
	require.NoError(t, repo.Save(context.Background(), set))
}

func TestAcknowledge(t *testing.T) {
	ctx := context.Background()

	t.Run("twice equals once", func(t *testing.T) {
		svc, repo := newAckService(t)
		require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 4))
		require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 4))

		assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 4))
		assert.False(t, svc.IsAcknowledged(notification.SourceCampaign, 4))
		assert.Equal(t, 1, repo.Saves())
		assert.Equal(t, []int64{4}, repo.Stored().LoanIDs)
	})

	t.Run("stamps the change time", func(t *testing.T) {
		svc, repo := newAckService(t)
		require.NoError(t, svc.Acknowledge(ctx, notification.SourceCampaign, 2))
		assert.True(t, testNow.Equal(repo.Stored().LastChangedAt))
		assert.True(t, testNow.Equal(svc.Snapshot().LastChangedAt))
	})

	t.Run("loads what was stored", func(t *testing.T) {
		repo := memstoretest.NewAcknowledgementRepository()
		seed(t, repo, 8, 9)
		svc := NewAcknowledgementService(repo, clock.NewFixed(testNow), testLogger())
		require.NoError(t, svc.Load(ctx))
		assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 8))
		assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 9))
	})
}

func TestAcknowledgeAllReplaces(t *testing.T) {
	ctx := context.Background()
	svc, repo := newAckService(t)
	require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 1))
	require.NoError(t, svc.Acknowledge(ctx, notification.SourceCampaign, 1))

	require.NoError(t, svc.AcknowledgeAll(ctx, []int64{2, 3}, []int64{5}))

	assert.False(t, svc.IsAcknowledged(notification.SourceLoan, 1))
	assert.False(t, svc.IsAcknowledged(notification.SourceCampaign, 1))
	assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 2))
	assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 3))
	assert.True(t, svc.IsAcknowledged(notification.SourceCampaign, 5))
	assert.Equal(t, []int64{2, 3}, repo.Stored().LoanIDs)
	assert.Equal(t, []int64{5}, repo.Stored().CampaignIDs)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	svc, repo := newAckService(t)
	require.NoError(t, svc.AcknowledgeAll(ctx, []int64{1, 2}, []int64{3}))

	require.NoError(t, svc.Reset(ctx))

	snap := svc.Snapshot()
	assert.Empty(t, snap.LoanIDs)
	assert.Empty(t, snap.CampaignIDs)
	assert.Empty(t, repo.Stored().LoanIDs)
	assert.Empty(t, repo.Stored().CampaignIDs)
}

func TestAcknowledgePersistenceFailure(t *testing.T) {
	ctx := context.Background()
	svc, repo := newAckService(t)
	repo.FailWith(errStoreDown)

	err := svc.Acknowledge(ctx, notification.SourceLoan, 7)
	require.ErrorIs(t, err, ErrAcknowledgementPersistence)
	assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 7), "change applies in memory")
	assert.True(t, svc.Dirty())
	assert.Nil(t, repo.Stored())

	repo.FailWith(nil)
	// Same id again: nothing changes in memory but the pending write is retried.
	require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 7))
	assert.False(t, svc.Dirty())
	assert.Equal(t, []int64{7}, repo.Stored().LoanIDs)
}

func TestDeferredLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("changes made while unloaded merge into the stored set", func(t *testing.T) {
		repo := memstoretest.NewAcknowledgementRepository()
		seed(t, repo, 1)
		repo.FailWith(errStoreDown)

		svc := NewAcknowledgementService(repo, clock.NewFixed(testNow), testLogger())
		require.Error(t, svc.Load(ctx))

		err := svc.Acknowledge(ctx, notification.SourceLoan, 2)
		require.ErrorIs(t, err, ErrAcknowledgementPersistence)
		assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 2))

		repo.FailWith(nil)
		require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 3))
		assert.Equal(t, []int64{1, 2, 3}, repo.Stored().LoanIDs)
		assert.False(t, svc.Dirty())
	})

	t.Run("a reset while unloaded wins over the stored set", func(t *testing.T) {
		repo := memstoretest.NewAcknowledgementRepository()
		seed(t, repo, 1, 2)
		repo.FailWith(errStoreDown)

		svc := NewAcknowledgementService(repo, clock.NewFixed(testNow), testLogger())
		require.Error(t, svc.Load(ctx))
		require.ErrorIs(t, svc.Reset(ctx), ErrAcknowledgementPersistence)

		repo.FailWith(nil)
		require.NoError(t, svc.Acknowledge(ctx, notification.SourceLoan, 5))
		assert.Equal(t, []int64{5}, repo.Stored().LoanIDs)
		assert.False(t, svc.IsAcknowledged(notification.SourceLoan, 1))
	})
}

func TestEnsureLoaded(t *testing.T) {
	ctx := context.Background()
	repo := memstoretest.NewAcknowledgementRepository()
	seed(t, repo, 1)
	repo.FailWith(errStoreDown)

	svc := NewAcknowledgementService(repo, clock.NewFixed(testNow), testLogger())
	require.Error(t, svc.Load(ctx))
	require.ErrorIs(t, svc.EnsureLoaded(ctx), errStoreDown)
	assert.False(t, svc.IsAcknowledged(notification.SourceLoan, 1))

	repo.FailWith(nil)
	require.NoError(t, svc.EnsureLoaded(ctx))
	assert.True(t, svc.IsAcknowledged(notification.SourceLoan, 1))

	// Already loaded: the store is not touched again.
	repo.FailWith(errStoreDown)
	assert.NoError(t, svc.EnsureLoaded(ctx))
}
