package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assistance_alerts/internal/domain/campaign"
)

type PostgresCampaignRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewPostgresCampaignRepository(db *sql.DB, loc *time.Location) *PostgresCampaignRepository {
	return &PostgresCampaignRepository{db: db, loc: loc}
}

func (r *PostgresCampaignRepository) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	query := `SELECT id, name, start_date, end_date FROM campaigns ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []campaign.Campaign
	for rows.Next() {
		var (
			c          campaign.Campaign
			name       sql.NullString
			start, end sql.NullTime
		)
		if err := rows.Scan(&c.ID, &name, &start, &end); err != nil {
			return nil, fmt.Errorf("error scanning campaign row: %w", err)
		}
		c.Name = name.String
		// A missing date stays zero and the scanner skips the campaign.
		if start.Valid {
			c.StartDate = civilDate(start.Time, r.loc)
		}
		if end.Valid {
			c.EndDate = civilDate(end.Time, r.loc)
		}
		campaigns = append(campaigns, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign rows: %w", err)
	}
	return campaigns, nil
}
