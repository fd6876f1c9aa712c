package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assistance_alerts/internal/domain/assistance"
)

type PostgresAssistanceRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgresAssistanceRepository reads medical-assistance records. Dates are
// interpreted as calendar dates in loc.
func NewPostgresAssistanceRepository(db *sql.DB, loc *time.Location) *PostgresAssistanceRepository {
	return &PostgresAssistanceRepository{db: db, loc: loc}
}

// ListAssistanceRecords returns every record. The explicit nature column wins
// when set; older rows only carry the free-text label.
func (r *PostgresAssistanceRepository) ListAssistanceRecords(ctx context.Context) ([]assistance.Record, error) {
	query := `SELECT id, nature, nature_label, returned, due_date, return_date,
                     beneficiary_name, equipment_label
              FROM medical_assistances
              ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing assistance records: %w", err)
	}
	defer rows.Close()

	var records []assistance.Record
	for rows.Next() {
		var (
			rec                   assistance.Record
			nature, label         sql.NullString
			dueDate, returnDate   sql.NullTime
			beneficiary, material sql.NullString
		)
		if err := rows.Scan(&rec.ID, &nature, &label, &rec.Returned, &dueDate, &returnDate, &beneficiary, &material); err != nil {
			return nil, fmt.Errorf("error scanning assistance record row: %w", err)
		}
		rec.Nature = resolveNature(nature, label)
		rec.DueDate = nullableDate(dueDate, r.loc)
		rec.ReturnDate = nullableDate(returnDate, r.loc)
		rec.BeneficiaryName = beneficiary.String
		rec.EquipmentLabel = material.String
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assistance record rows: %w", err)
	}
	return records, nil
}

// resolveNature passes an unknown explicit value through untouched so the
// scanner can reject the row instead of guessing.
func resolveNature(nature, label sql.NullString) assistance.Nature {
	if nature.Valid && nature.String != "" {
		return assistance.Nature(nature.String)
	}
	return assistance.NatureFromLabel(label.String)
}
