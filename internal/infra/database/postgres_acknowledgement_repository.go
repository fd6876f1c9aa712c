// internal/infra/database/postgres_acknowledgement_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assistance_alerts/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array
)

// PostgresAcknowledgementRepository keeps the acknowledgement set as a single
// row addressed by its storage key.
type PostgresAcknowledgementRepository struct {
	db  *sql.DB
	key string
}

func NewPostgresAcknowledgementRepository(db *sql.DB, key string) *PostgresAcknowledgementRepository {
	if key == "" {
		key = notification.DefaultAcknowledgementKey
	}
	return &PostgresAcknowledgementRepository{db: db, key: key}
}

// Load returns an empty set when no row exists for the key.
func (r *PostgresAcknowledgementRepository) Load(ctx context.Context) (*notification.AcknowledgementSet, error) {
	query := `SELECT loan_ids, campaign_ids, last_changed_at
              FROM notification_acknowledgements
              WHERE storage_key = $1`
	var (
		rec         notification.AcknowledgementRecord
		lastChanged sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(
		pq.Array(&rec.LoanIDs), pq.Array(&rec.CampaignIDs), &lastChanged,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.NewAcknowledgementSet(), nil
		}
		return nil, fmt.Errorf("error loading acknowledgements: %w", err)
	}
	if lastChanged.Valid {
		rec.LastChangedAt = lastChanged.Time
	}
	return rec.Set(), nil
}

// Save upserts the whole set.
func (r *PostgresAcknowledgementRepository) Save(ctx context.Context, set *notification.AcknowledgementSet) error {
	rec := set.Record()
	var lastChanged any
	if !rec.LastChangedAt.IsZero() {
		lastChanged = rec.LastChangedAt.UTC().Truncate(time.Microsecond)
	}
	query := `INSERT INTO notification_acknowledgements (storage_key, loan_ids, campaign_ids, last_changed_at)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (storage_key) DO UPDATE
              SET loan_ids = EXCLUDED.loan_ids,
                  campaign_ids = EXCLUDED.campaign_ids,
                  last_changed_at = EXCLUDED.last_changed_at`
	_, err := r.db.ExecContext(ctx, query, r.key, pq.Array(rec.LoanIDs), pq.Array(rec.CampaignIDs), lastChanged)
	if err != nil {
		return fmt.Errorf("error saving acknowledgements: %w", err)
	}
	return nil
}
