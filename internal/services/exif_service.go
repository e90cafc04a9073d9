package services

import (
	"bytes"
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIFData contains the metadata the overlay pipeline cares about
type EXIFData struct {
	CapturedAt  *time.Time
	Latitude    *float64
	Longitude   *float64
	Orientation int
}

// EXIFService extracts EXIF metadata from images
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// ExtractFromBytes extracts EXIF data from image bytes
func (s *EXIFService) ExtractFromBytes(data []byte) (*EXIFData, error) {
	return s.ExtractFromReader(bytes.NewReader(data))
}

// ExtractFromReader extracts EXIF data from an io.Reader
func (s *EXIFService) ExtractFromReader(r io.Reader) (*EXIFData, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// No EXIF data or unsupported format - return empty data with defaults
		return &EXIFData{Orientation: 1}, nil
	}

	result := &EXIFData{
		Orientation: 1, // Default orientation
	}

	if tm, err := x.DateTime(); err == nil {
		result.CapturedAt = &tm
	}

	if lat, lng, err := x.LatLong(); err == nil {
		result.Latitude = &lat
		result.Longitude = &lng
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			result.Orientation = val
		}
	}

	return result, nil
}
