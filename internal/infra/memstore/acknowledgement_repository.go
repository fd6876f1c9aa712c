// Package memstore keeps acknowledgements in process memory. It backs
// ACK_STORE=memory; nothing survives a restart.
package memstore

import (
	"context"
	"sync"

	"assistance_alerts/internal/domain/notification"
)

type AcknowledgementRepository struct {
	mu     sync.Mutex
	record *notification.AcknowledgementRecord
}

func NewAcknowledgementRepository() *AcknowledgementRepository {
	return &AcknowledgementRepository{}
}

func (r *AcknowledgementRepository) Load(_ context.Context) (*notification.AcknowledgementSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return notification.NewAcknowledgementSet(), nil
	}
	return r.record.Set(), nil
}

func (r *AcknowledgementRepository) Save(_ context.Context, set *notification.AcknowledgementSet) error {
	rec := set.Record()
	r.mu.Lock()
	r.record = &rec
	r.mu.Unlock()
	return nil
}
