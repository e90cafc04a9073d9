package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/inktime/server/internal/models"
)

const photoColumns = `id, path, captured_at, caption, latitude, longitude, city, review_state, last_featured_at, discovered_at`

// PhotoRepository handles photo persistence on SQLite
type PhotoRepository struct {
	db DBTX
}

// NewPhotoRepository creates a new PhotoRepository
func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var photo models.Photo
	var capturedAt, lastFeaturedAt sql.NullTime
	var lat, lon sql.NullFloat64

	err := row.Scan(
		&photo.ID,
		&photo.Path,
		&capturedAt,
		&photo.Caption,
		&lat,
		&lon,
		&photo.City,
		&photo.ReviewState,
		&lastFeaturedAt,
		&photo.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}

	if capturedAt.Valid {
		t := capturedAt.Time
		photo.CapturedAt = &t
	}
	if lastFeaturedAt.Valid {
		t := lastFeaturedAt.Time
		photo.LastFeaturedAt = &t
	}
	if lat.Valid {
		v := lat.Float64
		photo.Latitude = &v
	}
	if lon.Valid {
		v := lon.Float64
		photo.Longitude = &v
	}

	return &photo, nil
}

// Insert stores a newly discovered photo
func (r *PhotoRepository) Insert(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = ?`

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
func (r *PhotoRepository) List(ctx context.Context, filter ListFilter) ([]*models.Photo, int, error) {
	var where []string
	var args []interface{}

	if filter.State != "" {
		where = append(where, "review_state = ?")
		args = append(args, filter.State)
	}
	if filter.Month > 0 {
		where = append(where, "CAST(strftime('%m', captured_at) AS INTEGER) = ?")
		args = append(args, filter.Month)
	}
	if filter.Day > 0 {
		where = append(where, "CAST(strftime('%d', captured_at) AS INTEGER) = ?")
		args = append(args, filter.Day)
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
		` ORDER BY captured_at IS NULL, captured_at DESC, id ASC`
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
func (r *PhotoRepository) SetReviewState(ctx context.Context, id string, state models.ReviewState) error {
	if !state.Valid() {
		return models.ErrInvalidReviewState
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET review_state = ? WHERE id = ?`, state, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetCaption updates a photo's overlay caption
func (r *PhotoRepository) SetCaption(ctx context.Context, id string, caption string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET caption = ? WHERE id = ?`, caption, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// FirstEligible returns the next photo in selection order: not rejected,
// least-recently-featured first (never featured before any featured date),
// ties broken by ascending ID
func (r *PhotoRepository) FirstEligible(ctx context.Context) (*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE review_state != 'rejected'
		ORDER BY last_featured_at IS NOT NULL, last_featured_at ASC, id ASC
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
func (r *PhotoRepository) MarkFeatured(ctx context.Context, id string, featuredAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET last_featured_at = ? WHERE id = ?`, featuredAt, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrPhotoNotFound
	}
	return nil
}
