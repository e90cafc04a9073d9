package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Photos table (library entries with review and featuring state)
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		captured_at DATETIME,
		caption TEXT NOT NULL DEFAULT '',
		latitude REAL,
		longitude REAL,
		city TEXT NOT NULL DEFAULT '',
		review_state TEXT NOT NULL DEFAULT 'pending',
		last_featured_at DATETIME,
		discovered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_photos_review_state ON photos(review_state);
	CREATE INDEX IF NOT EXISTS idx_photos_captured_at ON photos(captured_at);
	CREATE INDEX IF NOT EXISTS idx_photos_last_featured_at ON photos(last_featured_at);

	-- Selection records: one row per calendar day, written once
	CREATE TABLE IF NOT EXISTS selections (
		day TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL REFERENCES photos(id),
		resolved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}
