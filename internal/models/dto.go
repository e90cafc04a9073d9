package models

import "time"

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ReviewPhotoResponse is a single photo in review listings
type ReviewPhotoResponse struct {
	ID             string     `json:"id"`
	Path           string     `json:"path"`
	CapturedAt     *time.Time `json:"capturedAt,omitempty"`
	Caption        string     `json:"caption"`
	City           string     `json:"city,omitempty"`
	ReviewState    string     `json:"reviewState"`
	LastFeaturedAt *time.Time `json:"lastFeaturedAt,omitempty"`
}

// ReviewListResponse is returned when listing reviewable photos
type ReviewListResponse struct {
	Photos     []ReviewPhotoResponse `json:"photos"`
	TotalCount int                   `json:"totalCount"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
}

// SetReviewRequest is the body for updating a photo's review state
type SetReviewRequest struct {
	State   string  `json:"state"`
	Caption *string `json:"caption,omitempty"`
}

// SimPhotoResponse is a single photo in the simulator listing
type SimPhotoResponse struct {
	ID         string     `json:"id"`
	Path       string     `json:"path"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	Caption    string     `json:"caption"`
}

// ScanStatusResponse reports the library scanner state
type ScanStatusResponse struct {
	Running         bool      `json:"running"`
	Enabled         bool      `json:"enabled"`
	RunID           string    `json:"runId,omitempty"`
	LastRun         time.Time `json:"lastRun,omitempty"`
	LastRunDuration string    `json:"lastRunDuration,omitempty"`
	FilesScanned    int       `json:"filesScanned"`
	PhotosAdded     int       `json:"photosAdded"`
	Skipped         int       `json:"skipped"`
	Progress        float64   `json:"progress"`
	NextRun         time.Time `json:"nextScheduledRun,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
}
