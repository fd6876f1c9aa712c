// Package memstoretest provides in-memory collaborators with failure
// injection for tests of the services and their delivery surfaces.
package memstoretest

import (
	"context"
	"sync"

	"assistance_alerts/internal/domain/notification"
	"assistance_alerts/internal/infra/memstore"
)

// AcknowledgementRepository wraps the memory store with failure injection
// and write accounting.
type AcknowledgementRepository struct {
	inner *memstore.AcknowledgementRepository

	mu      sync.Mutex
	saves   int
	failErr error
}

func NewAcknowledgementRepository() *AcknowledgementRepository {
	return &AcknowledgementRepository{inner: memstore.NewAcknowledgementRepository()}
}

func (r *AcknowledgementRepository) Load(ctx context.Context) (*notification.AcknowledgementSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	return r.inner.Load(ctx)
}

func (r *AcknowledgementRepository) Save(ctx context.Context, set *notification.AcknowledgementSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if err := r.inner.Save(ctx, set); err != nil {
		return err
	}
	r.saves++
	return nil
}

// FailWith makes every subsequent call return err until called with nil.
func (r *AcknowledgementRepository) FailWith(err error) {
	r.mu.Lock()
	r.failErr = err
	r.mu.Unlock()
}

// Saves returns how many writes succeeded.
func (r *AcknowledgementRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// Stored returns the last persisted record, or nil if nothing was written.
func (r *AcknowledgementRepository) Stored() *notification.AcknowledgementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saves == 0 {
		return nil
	}
	set, _ := r.inner.Load(context.Background())
	rec := set.Record()
	return &rec
}
