package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/inktime/server/internal/models"
)

// PhotoRepositoryPostgres handles photo persistence for PostgreSQL
type PhotoRepositoryPostgres struct {
	db DBTX
}

// NewPhotoRepositoryPostgres creates a new PhotoRepositoryPostgres
func NewPhotoRepositoryPostgres(db DBTX) *PhotoRepositoryPostgres {
	return &PhotoRepositoryPostgres{db: db}
}

// Insert stores a newly discovered photo
func (r *PhotoRepositoryPostgres) Insert(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		photo.ID,
		photo.Path,
		photo.CapturedAt,
		photo.Caption,
		photo.Latitude,
		photo.Longitude,
		photo.City,
		photo.ReviewState,
		photo.LastFeaturedAt,
		photo.DiscoveredAt,
	)
	return err
}

// GetByID retrieves a photo by its ID
func (r *PhotoRepositoryPostgres) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// List retrieves photos matching the filter, newest capture first,
// along with the total match count
func (r *PhotoRepositoryPostgres) List(ctx context.Context, filter ListFilter) ([]*models.Photo, int, error) {
	var where []string
	var args []interface{}

	if filter.State != "" {
		args = append(args, filter.State)
		where = append(where, fmt.Sprintf("review_state = $%d", len(args)))
	}
	if filter.Month > 0 {
		args = append(args, filter.Month)
		where = append(where, fmt.Sprintf("EXTRACT(MONTH FROM captured_at) = $%d", len(args)))
	}
	if filter.Day > 0 {
		args = append(args, filter.Day)
		where = append(where, fmt.Sprintf("EXTRACT(DAY FROM captured_at) = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM photos` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + photoColumns + ` FROM photos` + whereClause +
		` ORDER BY captured_at DESC NULLS LAST, id ASC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, 0, err
		}
		photos = append(photos, photo)
	}
	return photos, total, rows.Err()
}

// SetReviewState updates a photo's review state
func (r *PhotoRepositoryPostgres) SetReviewState(ctx context.Context, id string, state models.ReviewState) error {
	if !state.Valid() {
		return models.ErrInvalidReviewState
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET review_state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetCaption updates a photo's overlay caption
func (r *PhotoRepositoryPostgres) SetCaption(ctx context.Context, id string, caption string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET caption = $1 WHERE id = $2`, caption, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// FirstEligible returns the next photo in selection order
func (r *PhotoRepositoryPostgres) FirstEligible(ctx context.Context) (*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE review_state != 'rejected'
		ORDER BY last_featured_at ASC NULLS FIRST, id ASC
		LIMIT 1
	`

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// MarkFeatured records that a photo was featured at the given time
func (r *PhotoRepositoryPostgres) MarkFeatured(ctx context.Context, id string, featuredAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET last_featured_at = $1 WHERE id = $2`, featuredAt, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}
