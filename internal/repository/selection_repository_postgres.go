package repository

import (
	"context"
	"database/sql"

	"github.com/inktime/server/internal/models"
)

// SelectionRepositoryPostgres persists daily selection records on PostgreSQL
type SelectionRepositoryPostgres struct {
	db DBTX
}

// NewSelectionRepositoryPostgres creates a new SelectionRepositoryPostgres
func NewSelectionRepositoryPostgres(db DBTX) *SelectionRepositoryPostgres {
	return &SelectionRepositoryPostgres{db: db}
}

// Get retrieves the selection record for a calendar day.
// Returns (nil, nil) when the day is unresolved.
func (r *SelectionRepositoryPostgres) Get(ctx context.Context, day string) (*models.SelectionRecord, error) {
	query := `SELECT day, photo_id, resolved_at FROM selections WHERE day = $1`

	var rec models.SelectionRecord
	err := r.db.QueryRowContext(ctx, query, day).Scan(&rec.Day, &rec.PhotoID, &rec.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutIfAbsent writes the record only if the day has no record yet
func (r *SelectionRepositoryPostgres) PutIfAbsent(ctx context.Context, rec *models.SelectionRecord) (bool, error) {
	query := `
		INSERT INTO selections (day, photo_id, resolved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, rec.Day, rec.PhotoID, rec.ResolvedAt)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
