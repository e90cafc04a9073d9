package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoID(t *testing.T) {
	t.Run("is stable for the same path", func(t *testing.T) {
		assert.Equal(t, PhotoID("2024/summer/beach.jpg"), PhotoID("2024/summer/beach.jpg"))
	})

	t.Run("differs for different paths", func(t *testing.T) {
		assert.NotEqual(t, PhotoID("a.jpg"), PhotoID("b.jpg"))
	})

	t.Run("normalizes path separators", func(t *testing.T) {
		assert.Equal(t, PhotoID("2024/summer/beach.jpg"), PhotoID(`2024\summer\beach.jpg`))
	})

	t.Run("is 64 hex chars", func(t *testing.T) {
		assert.Len(t, PhotoID("x.jpg"), 64)
	})
}

func TestNewPhoto(t *testing.T) {
	t.Run("creates a pending photo", func(t *testing.T) {
		taken := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)
		photo, err := NewPhoto("2024/july/hike.jpg", &taken)
		require.NoError(t, err)

		assert.Equal(t, PhotoID("2024/july/hike.jpg"), photo.ID)
		assert.Equal(t, "2024/july/hike.jpg", photo.Path)
		assert.Equal(t, ReviewPending, photo.ReviewState)
		assert.Equal(t, &taken, photo.CapturedAt)
		assert.False(t, photo.DiscoveredAt.IsZero())
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewPhoto("", nil)
		assert.ErrorIs(t, err, ErrEmptyPath)

		_, err = NewPhoto("   ", nil)
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestReviewState_Valid(t *testing.T) {
	assert.True(t, ReviewPending.Valid())
	assert.True(t, ReviewApproved.Valid())
	assert.True(t, ReviewRejected.Valid())
	assert.False(t, ReviewState("archived").Valid())
	assert.False(t, ReviewState("").Valid())
}

func TestPhoto_Eligible(t *testing.T) {
	t.Run("pending and approved are eligible", func(t *testing.T) {
		assert.True(t, (&Photo{ReviewState: ReviewPending}).Eligible())
		assert.True(t, (&Photo{ReviewState: ReviewApproved}).Eligible())
	})

	t.Run("rejected is not eligible", func(t *testing.T) {
		assert.False(t, (&Photo{ReviewState: ReviewRejected}).Eligible())
	})
}

func TestDay(t *testing.T) {
	d := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-09", Day(d))
}
