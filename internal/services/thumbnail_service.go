package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	_ "golang.org/x/image/webp"
)

// ThumbnailService renders review thumbnails on the fly
type ThumbnailService struct {
	maxDim  int
	quality int
}

// NewThumbnailService creates a ThumbnailService. maxDim is the longest edge
// of generated thumbnails; quality is JPEG quality 1-100.
func NewThumbnailService(maxDim, quality int) *ThumbnailService {
	if maxDim <= 0 {
		maxDim = 500
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &ThumbnailService{maxDim: maxDim, quality: quality}
}

// Generate decodes imageData (HEIC included), corrects EXIF orientation and
// returns JPEG thumbnail bytes
func (s *ThumbnailService) Generate(imageData []byte, path string, orientation int) ([]byte, error) {
	img, err := DecodeImage(imageData, path)
	if err != nil {
		return nil, err
	}

	img = applyOrientation(img, orientation)
	thumb := imaging.Fit(img, s.maxDim, s.maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes image bytes, using goheif for HEIC/HEIF files and the
// standard registered decoders for everything else
func DecodeImage(data []byte, path string) (image.Image, error) {
	if IsHEIC(path) {
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode HEIC image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// IsHEIC checks if the file is HEIC/HEIF format (requires special handling)
func IsHEIC(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".heic" || ext == ".heif"
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 1:
		// Normal, no transformation needed
		return img
	case 2:
		// Flip horizontal
		return imaging.FlipH(img)
	case 3:
		// Rotate 180
		return imaging.Rotate180(img)
	case 4:
		// Flip vertical
		return imaging.FlipV(img)
	case 5:
		// Transpose (flip horizontal + rotate 270)
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		// Rotate 90 CW
		return imaging.Rotate270(img)
	case 7:
		// Transverse (flip horizontal + rotate 90)
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		// Rotate 90 CCW
		return imaging.Rotate90(img)
	default:
		return img
	}
}
