package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		captured_at TIMESTAMP,
		caption TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		city TEXT NOT NULL DEFAULT '',
		review_state TEXT NOT NULL DEFAULT 'pending',
		last_featured_at TIMESTAMP,
		discovered_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_photos_review_state ON photos(review_state);
	CREATE INDEX IF NOT EXISTS idx_photos_captured_at ON photos(captured_at);
	CREATE INDEX IF NOT EXISTS idx_photos_last_featured_at ON photos(last_featured_at);

	CREATE TABLE IF NOT EXISTS selections (
		day TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL REFERENCES photos(id),
		resolved_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`

	_, err := db.Exec(schema)
	return err
}
