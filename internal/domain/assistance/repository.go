package assistance

import (
	"context"
)

// Repository is the read-only query API of the record owner.
type Repository interface {
	// ListAssistanceRecords returns a complete snapshot for one evaluation pass.
	ListAssistanceRecords(ctx context.Context) ([]Record, error)
}
