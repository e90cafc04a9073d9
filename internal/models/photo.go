package models

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// ReviewState is the review/approval state of a photo
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewApproved ReviewState = "approved"
	ReviewRejected ReviewState = "rejected"
)

// Valid reports whether s is a known review state
func (s ReviewState) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// Photo represents a photo discovered in the library
type Photo struct {
	ID             string      `json:"id"`
	Path           string      `json:"path"` // relative to the library root, slash-separated
	CapturedAt     *time.Time  `json:"capturedAt,omitempty"`
	Caption        string      `json:"caption"`
	Latitude       *float64    `json:"latitude,omitempty"`
	Longitude      *float64    `json:"longitude,omitempty"`
	City           string      `json:"city,omitempty"`
	ReviewState    ReviewState `json:"reviewState"`
	LastFeaturedAt *time.Time  `json:"lastFeaturedAt,omitempty"`
	DiscoveredAt   time.Time   `json:"discoveredAt"`
}

// NewPhoto creates a new pending Photo for a library file. The ID is derived
// from the slash-normalized relative path, so the same file always maps to
// the same ID across scans and restarts.
func NewPhoto(relPath string, capturedAt *time.Time) (*Photo, error) {
	if strings.TrimSpace(relPath) == "" {
		return nil, ErrEmptyPath
	}

	normalized := filepath.ToSlash(relPath)
	return &Photo{
		ID:           PhotoID(normalized),
		Path:         normalized,
		CapturedAt:   capturedAt,
		ReviewState:  ReviewPending,
		DiscoveredAt: time.Now().UTC(),
	}, nil
}

// PhotoID derives the stable photo ID for a library-relative path.
func PhotoID(relPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(sum[:])
}

// Eligible reports whether the photo may be considered by the daily selector.
// Rejected photos are excluded until a collaborator resets their state.
func (p *Photo) Eligible() bool {
	return p.ReviewState != ReviewRejected
}

// Errors
type PhotoError struct {
	Message string
}

func (e PhotoError) Error() string {
	return e.Message
}

var (
	ErrEmptyPath          = PhotoError{"photo path cannot be empty"}
	ErrPhotoNotFound      = PhotoError{"photo not found"}
	ErrInvalidReviewState = PhotoError{"invalid review state"}
	ErrNoEligiblePhotos   = PhotoError{"no eligible photos for selection"}
	ErrFontUnavailable    = PhotoError{"no renderable font face available"}
)
