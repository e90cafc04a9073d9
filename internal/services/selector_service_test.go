package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/repository"
)

// fakePhotoRepo is an in-memory PhotoRepo mirroring the selection ordering
// of the SQL implementations
type fakePhotoRepo struct {
	mu     sync.Mutex
	photos map[string]*models.Photo
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[string]*models.Photo)}
}

func (r *fakePhotoRepo) Insert(ctx context.Context, photo *models.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *photo
	r.photos[photo.ID] = &cp
	return nil
}

func (r *fakePhotoRepo) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.photos[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakePhotoRepo) List(ctx context.Context, filter repository.ListFilter) ([]*models.Photo, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Photo
	for _, p := range r.photos {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakePhotoRepo) SetReviewState(ctx context.Context, id string, state models.ReviewState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return models.ErrPhotoNotFound
	}
	p.ReviewState = state
	return nil
}

func (r *fakePhotoRepo) SetCaption(ctx context.Context, id string, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return models.ErrPhotoNotFound
	}
	p.Caption = caption
	return nil
}

func (r *fakePhotoRepo) FirstEligible(ctx context.Context) (*models.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var eligible []*models.Photo
	for _, p := range r.photos {
		if p.ReviewState != models.ReviewRejected {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		switch {
		case a.LastFeaturedAt == nil && b.LastFeaturedAt != nil:
			return true
		case a.LastFeaturedAt != nil && b.LastFeaturedAt == nil:
			return false
		case a.LastFeaturedAt != nil && b.LastFeaturedAt != nil && !a.LastFeaturedAt.Equal(*b.LastFeaturedAt):
			return a.LastFeaturedAt.Before(*b.LastFeaturedAt)
		}
		return a.ID < b.ID
	})

	cp := *eligible[0]
	return &cp, nil
}

func (r *fakePhotoRepo) MarkFeatured(ctx context.Context, id string, featuredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return models.ErrPhotoNotFound
	}
	t := featuredAt
	p.LastFeaturedAt = &t
	return nil
}

// fakeSelectionRepo is an in-memory SelectionRepo with write-once days
type fakeSelectionRepo struct {
	mu      sync.Mutex
	records map[string]*models.SelectionRecord
}

func newFakeSelectionRepo() *fakeSelectionRepo {
	return &fakeSelectionRepo{records: make(map[string]*models.SelectionRecord)}
}

func (r *fakeSelectionRepo) Get(ctx context.Context, day string) (*models.SelectionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[day]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSelectionRepo) PutIfAbsent(ctx context.Context, rec *models.SelectionRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.Day]; ok {
		return false, nil
	}
	cp := *rec
	r.records[rec.Day] = &cp
	return true, nil
}

func addPhoto(t *testing.T, repo *fakePhotoRepo, path string, state models.ReviewState) *models.Photo {
	t.Helper()
	photo, err := models.NewPhoto(path, nil)
	require.NoError(t, err)
	photo.ReviewState = state
	require.NoError(t, repo.Insert(context.Background(), photo))
	return photo
}

func TestSelectorService_SelectForDay(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 7, 3, 9, 30, 0, 0, time.UTC)

	t.Run("resolves once and stays resolved", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		addPhoto(t, photos, "a.jpg", models.ReviewApproved)
		addPhoto(t, photos, "b.jpg", models.ReviewApproved)
		svc := NewSelectorService(photos, selections)

		first, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := svc.SelectForDay(ctx, day.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, first.PhotoID, again.PhotoID)
			assert.Equal(t, first.Day, again.Day)
		}
	})

	t.Run("survives a restart", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		addPhoto(t, photos, "a.jpg", models.ReviewApproved)

		first, err := NewSelectorService(photos, selections).SelectForDay(ctx, day)
		require.NoError(t, err)

		// A fresh service over the same stores sees the same record
		again, err := NewSelectorService(photos, selections).SelectForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("ties break by ascending photo ID", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		a := addPhoto(t, photos, "a.jpg", models.ReviewApproved)
		b := addPhoto(t, photos, "b.jpg", models.ReviewApproved)
		svc := NewSelectorService(photos, selections)

		rec, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)

		want := a.ID
		if b.ID < a.ID {
			want = b.ID
		}
		assert.Equal(t, want, rec.PhotoID)
	})

	t.Run("rotates least recently featured first", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		addPhoto(t, photos, "a.jpg", models.ReviewApproved)
		addPhoto(t, photos, "b.jpg", models.ReviewApproved)
		addPhoto(t, photos, "c.jpg", models.ReviewApproved)
		svc := NewSelectorService(photos, selections)

		seen := make(map[string]bool)
		for i := 0; i < 3; i++ {
			rec, err := svc.SelectForDay(ctx, day.AddDate(0, 0, i))
			require.NoError(t, err)
			assert.False(t, seen[rec.PhotoID], "photo %s featured twice within the cycle", rec.PhotoID)
			seen[rec.PhotoID] = true
		}

		// The fourth day wraps around to the earliest-featured photo
		rec, err := svc.SelectForDay(ctx, day.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.True(t, seen[rec.PhotoID])
	})

	t.Run("rejected photos are never selected", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		addPhoto(t, photos, "bad.jpg", models.ReviewRejected)
		good := addPhoto(t, photos, "good.jpg", models.ReviewApproved)
		svc := NewSelectorService(photos, selections)

		rec, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, good.ID, rec.PhotoID)
	})

	t.Run("empty library writes nothing and can retry", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		svc := NewSelectorService(photos, selections)

		_, err := svc.SelectForDay(ctx, day)
		assert.ErrorIs(t, err, models.ErrNoEligiblePhotos)

		// No record was persisted for the day
		rec, err := selections.Get(ctx, models.Day(day))
		require.NoError(t, err)
		assert.Nil(t, rec)

		// Approving a photo later makes the same day resolvable
		added := addPhoto(t, photos, "late.jpg", models.ReviewApproved)
		resolved, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, added.ID, resolved.PhotoID)
	})

	t.Run("reapproved photo is immediately eligible again", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		photo := addPhoto(t, photos, "flip.jpg", models.ReviewRejected)
		svc := NewSelectorService(photos, selections)

		_, err := svc.SelectForDay(ctx, day)
		assert.ErrorIs(t, err, models.ErrNoEligiblePhotos)

		require.NoError(t, photos.SetReviewState(ctx, photo.ID, models.ReviewApproved))

		rec, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, photo.ID, rec.PhotoID)
	})

	t.Run("concurrent first queries agree on one photo", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		for _, p := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
			addPhoto(t, photos, p, models.ReviewApproved)
		}
		svc := NewSelectorService(photos, selections)

		const n = 16
		results := make([]*models.SelectionRecord, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.SelectForDay(ctx, day)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].PhotoID, results[i].PhotoID)
		}
	})

	t.Run("marks the winner featured with the selection day", func(t *testing.T) {
		photos := newFakePhotoRepo()
		selections := newFakeSelectionRepo()
		photo := addPhoto(t, photos, "a.jpg", models.ReviewApproved)
		svc := NewSelectorService(photos, selections)

		_, err := svc.SelectForDay(ctx, day)
		require.NoError(t, err)

		stored, err := photos.GetByID(ctx, photo.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastFeaturedAt)
		assert.Equal(t, day.UTC(), *stored.LastFeaturedAt)
	})
}
