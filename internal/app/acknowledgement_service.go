package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// ErrAcknowledgementPersistence means the in-memory change was applied but the
// durable write failed. It is retried with the next mutation.
var ErrAcknowledgementPersistence = errors.New("acknowledgement could not be persisted")

// AcknowledgementService owns the acknowledgement set. Mutations come only
// from explicit user actions and are serialized; each one is written through
// to the repository before returning.
type AcknowledgementService struct {
	repo   notification.AcknowledgementRepository
	clock  clock.Clock
	logger *logrus.Entry

	writeMu sync.Mutex // serializes mutate + Save

	mu     sync.RWMutex
	set    *notification.AcknowledgementSet
	loaded bool
	dirty  bool
	// set when AcknowledgeAll or Reset ran before the stored set was readable;
	// the in-memory set then wins over whatever is loaded later.
	replacedUnloaded bool
}

func NewAcknowledgementService(repo notification.AcknowledgementRepository, clk clock.Clock, logger *logrus.Entry) *AcknowledgementService {
	return &AcknowledgementService{
		repo:   repo,
		clock:  clk,
		logger: logger,
		set:    notification.NewAcknowledgementSet(),
	}
}

// Load reads the persisted set. On failure the service keeps working from an
// empty in-memory set and tries to load again before the next write or
// refresh, so a transient outage at startup cannot overwrite stored
// acknowledgements.
func (s *AcknowledgementService) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.loadLocked(ctx)
}

// EnsureLoaded retries Load when the stored set has not been read yet. It is
// a no-op once loaded.
func (s *AcknowledgementService) EnsureLoaded(ctx context.Context) error {
	if s.isLoaded() {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isLoaded() {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *AcknowledgementService) loadLocked(ctx context.Context) error {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load acknowledgements: %w", err)
	}
	if stored == nil {
		stored = notification.NewAcknowledgementSet()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replacedUnloaded {
		s.loaded = true
		s.dirty = true
		s.replacedUnloaded = false
		return nil
	}
	// Anything acknowledged while the store was unreachable is kept.
	for id := range s.set.LoanIDs {
		stored.Add(notification.SourceLoan, id)
	}
	for id := range s.set.CampaignIDs {
		stored.Add(notification.SourceCampaign, id)
	}
	if len(s.set.LoanIDs)+len(s.set.CampaignIDs) > 0 {
		s.dirty = true
	}
	s.set = stored
	s.loaded = true
	return nil
}

func (s *AcknowledgementService) IsAcknowledged(source notification.Source, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.IsAcknowledged(source, id)
}

// Snapshot returns a copy that stays consistent for a whole evaluation pass.
func (s *AcknowledgementService) Snapshot() *notification.AcknowledgementSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Clone()
}

// Dirty reports whether the last durable write failed.
func (s *AcknowledgementService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Acknowledge marks one alert as viewed. Acknowledging twice is a no-op.
func (s *AcknowledgementService) Acknowledge(ctx context.Context, source notification.Source, id int64) error {
	return s.mutate(ctx, "acknowledge", false, func(set *notification.AcknowledgementSet) bool {
		return set.Add(source, id)
	})
}

// AcknowledgeAll replaces both sets with exactly the given ids. It is not a
// union: ids acknowledged earlier but absent here become visible again.
func (s *AcknowledgementService) AcknowledgeAll(ctx context.Context, loanIDs, campaignIDs []int64) error {
	return s.mutate(ctx, "acknowledge_all", true, func(set *notification.AcknowledgementSet) bool {
		set.LoanIDs = make(map[int64]struct{}, len(loanIDs))
		set.CampaignIDs = make(map[int64]struct{}, len(campaignIDs))
		for _, id := range loanIDs {
			set.LoanIDs[id] = struct{}{}
		}
		for _, id := range campaignIDs {
			set.CampaignIDs[id] = struct{}{}
		}
		return true
	})
}

// Reset clears every acknowledgement.
func (s *AcknowledgementService) Reset(ctx context.Context) error {
	return s.mutate(ctx, "reset", true, func(set *notification.AcknowledgementSet) bool {
		set.LoanIDs = make(map[int64]struct{})
		set.CampaignIDs = make(map[int64]struct{})
		return true
	})
}

func (s *AcknowledgementService) mutate(ctx context.Context, op string, replaces bool, apply func(*notification.AcknowledgementSet) bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	log := s.logger.WithField("operation", op)

	if !s.isLoaded() {
		if err := s.loadLocked(ctx); err != nil {
			log.WithError(err).Warn("Acknowledgement store still unreachable, applying change in memory only")
		}
	}

	s.mu.Lock()
	changed := apply(s.set)
	if !changed && !s.dirty {
		s.mu.Unlock()
		log.Debug("Acknowledgement unchanged, nothing to persist")
		return nil
	}
	s.set.LastChangedAt = s.clock.Now()
	toSave := s.set.Clone()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		s.mu.Lock()
		s.dirty = true
		if replaces {
			s.replacedUnloaded = true
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: store not loaded", ErrAcknowledgementPersistence)
	}

	if err := s.repo.Save(ctx, toSave); err != nil {
		s.markDirty(true)
		log.WithError(err).Warn("Failed to persist acknowledgements, will retry on next change")
		return fmt.Errorf("%w: %v", ErrAcknowledgementPersistence, err)
	}
	s.markDirty(false)
	log.WithFields(logrus.Fields{
		"loan_ids":     len(toSave.LoanIDs),
		"campaign_ids": len(toSave.CampaignIDs),
	}).Debug("Acknowledgements persisted")
	return nil
}

func (s *AcknowledgementService) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *AcknowledgementService) markDirty(dirty bool) {
	s.mu.Lock()
	s.dirty = dirty
	s.mu.Unlock()
}
