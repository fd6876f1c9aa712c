// internal/domain/notification/repository.go
package notification

import (
	"context"
)

// DefaultAcknowledgementKey is the storage key holding the acknowledgement set.
const DefaultAcknowledgementKey = "notification_acknowledgements"

// AcknowledgementRepository persists the acknowledgement set under one key.
type AcknowledgementRepository interface {
	// Load returns an empty set, not an error, when nothing is stored yet.
	Load(ctx context.Context) (*AcknowledgementSet, error)
	// Save must durably write the whole set before returning.
	Save(ctx context.Context, set *AcknowledgementSet) error
}

// AcknowledgementChecker is the read side consulted while filtering alerts.
type AcknowledgementChecker interface {
	IsAcknowledged(source Source, id int64) bool
}
