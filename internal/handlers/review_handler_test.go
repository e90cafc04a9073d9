package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/repository"
)

type memPhotoRepo struct {
	photos map[string]*models.Photo
}

func newMemPhotoRepo() *memPhotoRepo {
	return &memPhotoRepo{photos: make(map[string]*models.Photo)}
}

func (r *memPhotoRepo) Insert(ctx context.Context, photo *models.Photo) error {
	cp := *photo
	r.photos[photo.ID] = &cp
	return nil
}

func (r *memPhotoRepo) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	if p, ok := r.photos[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memPhotoRepo) List(ctx context.Context, filter repository.ListFilter) ([]*models.Photo, int, error) {
	var out []*models.Photo
	for _, p := range r.photos {
		if filter.State != "" && p.ReviewState != filter.State {
			continue
		}
		if filter.Month != 0 {
			if p.CapturedAt == nil || int(p.CapturedAt.Month()) != filter.Month {
				continue
			}
		}
		if filter.Day != 0 {
			if p.CapturedAt == nil || p.CapturedAt.Day() != filter.Day {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memPhotoRepo) SetReviewState(ctx context.Context, id string, state models.ReviewState) error {
	p, ok := r.photos[id]
	if !ok {
		return models.ErrPhotoNotFound
	}
	p.ReviewState = state
	return nil
}

func (r *memPhotoRepo) SetCaption(ctx context.Context, id string, caption string) error {
	p, ok := r.photos[id]
	if !ok {
		return models.ErrPhotoNotFound
	}
	p.Caption = caption
	return nil
}

func (r *memPhotoRepo) FirstEligible(ctx context.Context) (*models.Photo, error) {
	return nil, nil
}

func (r *memPhotoRepo) MarkFeatured(ctx context.Context, id string, featuredAt time.Time) error {
	return nil
}

func decodeBody(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.NewDecoder(rec.Body).Decode(v)
}

func seedPhoto(t *testing.T, repo *memPhotoRepo, path string, capturedAt *time.Time, state models.ReviewState) *models.Photo {
	t.Helper()
	photo, err := models.NewPhoto(path, capturedAt)
	require.NoError(t, err)
	photo.ReviewState = state
	require.NoError(t, repo.Insert(context.Background(), photo))
	return photo
}

func reviewRouter(repo *memPhotoRepo) *chi.Mux {
	h := NewReviewHandler(repo, nil, nil, "")
	r := chi.NewRouter()
	r.Get("/api/review", h.List)
	r.Post("/api/review/{id}", h.SetReview)
	return r
}

func TestReviewHandler_List(t *testing.T) {
	repo := newMemPhotoRepo()
	march := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	july := time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC)
	seedPhoto(t, repo, "a.jpg", &march, models.ReviewPending)
	seedPhoto(t, repo, "b.jpg", &july, models.ReviewApproved)
	seedPhoto(t, repo, "c.jpg", nil, models.ReviewRejected)
	router := reviewRouter(repo)

	t.Run("lists all photos by default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewListResponse
		require.NoError(t, decodeBody(rec, &resp))
		assert.Equal(t, 3, resp.TotalCount)
		assert.Len(t, resp.Photos, 3)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 50, resp.PageSize)
	})

	t.Run("filters by state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review?state=approved", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewListResponse
		require.NoError(t, decodeBody(rec, &resp))
		require.Len(t, resp.Photos, 1)
		assert.Equal(t, "b.jpg", resp.Photos[0].Path)
	})

	t.Run("filters by capture month and day", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review?month=7&day=9", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewListResponse
		require.NoError(t, decodeBody(rec, &resp))
		require.Len(t, resp.Photos, 1)
		assert.Equal(t, "b.jpg", resp.Photos[0].Path)
	})

	t.Run("rejects invalid state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review?state=maybe", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects out-of-range month", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/review?month=13", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReviewHandler_SetReview(t *testing.T) {
	t.Run("approves a photo", func(t *testing.T) {
		repo := newMemPhotoRepo()
		photo := seedPhoto(t, repo, "a.jpg", nil, models.ReviewPending)
		router := reviewRouter(repo)

		body := strings.NewReader(`{"state":"approved"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/review/"+photo.ID, body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewPhotoResponse
		require.NoError(t, decodeBody(rec, &resp))
		assert.Equal(t, "approved", resp.ReviewState)

		stored, err := repo.GetByID(context.Background(), photo.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewApproved, stored.ReviewState)
	})

	t.Run("updates caption alongside state", func(t *testing.T) {
		repo := newMemPhotoRepo()
		photo := seedPhoto(t, repo, "a.jpg", nil, models.ReviewPending)
		router := reviewRouter(repo)

		body := strings.NewReader(`{"state":"approved","caption":"夏休みの海"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/review/"+photo.ID, body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewPhotoResponse
		require.NoError(t, decodeBody(rec, &resp))
		assert.Equal(t, "夏休みの海", resp.Caption)
	})

	t.Run("leaves caption untouched when omitted", func(t *testing.T) {
		repo := newMemPhotoRepo()
		photo := seedPhoto(t, repo, "a.jpg", nil, models.ReviewPending)
		photo.Caption = "keep me"
		repo.photos[photo.ID].Caption = "keep me"
		router := reviewRouter(repo)

		body := strings.NewReader(`{"state":"rejected"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/review/"+photo.ID, body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ReviewPhotoResponse
		require.NoError(t, decodeBody(rec, &resp))
		assert.Equal(t, "keep me", resp.Caption)
	})

	t.Run("rejects invalid state", func(t *testing.T) {
		repo := newMemPhotoRepo()
		photo := seedPhoto(t, repo, "a.jpg", nil, models.ReviewPending)
		router := reviewRouter(repo)

		body := strings.NewReader(`{"state":"later"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/review/"+photo.ID, body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown photo returns 404", func(t *testing.T) {
		router := reviewRouter(newMemPhotoRepo())

		body := strings.NewReader(`{"state":"approved"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/review/doesnotexist", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
