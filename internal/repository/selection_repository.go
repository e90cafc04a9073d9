package repository

import (
	"context"
	"database/sql"

	"github.com/inktime/server/internal/models"
)

// SelectionRepository persists daily selection records on SQLite
type SelectionRepository struct {
	db DBTX
}

// NewSelectionRepository creates a new SelectionRepository
func NewSelectionRepository(db DBTX) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Get retrieves the selection record for a calendar day.
// Returns (nil, nil) when the day is unresolved.
func (r *SelectionRepository) Get(ctx context.Context, day string) (*models.SelectionRecord, error) {
	query := `SELECT day, photo_id, resolved_at FROM selections WHERE day = ?`

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

// PutIfAbsent writes the record only if the day has no record yet.
// The primary key on day makes this a compare-and-set: concurrent writers
// race on the insert and exactly one wins.
func (r *SelectionRepository) PutIfAbsent(ctx context.Context, rec *models.SelectionRecord) (bool, error) {
	query := `
		INSERT INTO selections (day, photo_id, resolved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO NOTHING
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
