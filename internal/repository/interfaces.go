package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/inktime/server/internal/models"
)

// DBTX is the subset of *sql.DB the repositories need. The observability
// package's traced wrapper satisfies it as well.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ListFilter narrows review listings
type ListFilter struct {
	State    models.ReviewState // empty = all states
	Month    int                // 1-12, 0 = any
	Day      int                // 1-31, 0 = any
	Page     int                // 1-based
	PageSize int
}

// PhotoRepo handles photo persistence, including review state
type PhotoRepo interface {
	Insert(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Photo, int, error)
	SetReviewState(ctx context.Context, id string, state models.ReviewState) error
	SetCaption(ctx context.Context, id string, caption string) error
	// FirstEligible returns the next photo in selection order: photos that
	// are not rejected, least-recently-featured first (never featured sorts
	// before any featured date), ties broken by ascending ID. Returns
	// (nil, nil) when no photo is eligible.
	FirstEligible(ctx context.Context) (*models.Photo, error)
	MarkFeatured(ctx context.Context, id string, featuredAt time.Time) error
}

// SelectionRepo handles the per-day selection records
type SelectionRepo interface {
	Get(ctx context.Context, day string) (*models.SelectionRecord, error)
	// PutIfAbsent writes the record only if no record exists for its day.
	// Returns true if this call performed the write.
	PutIfAbsent(ctx context.Context, rec *models.SelectionRecord) (bool, error)
}
