package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
	"github.com/inktime/server/internal/services"
)

// ReviewHandler handles the photo review endpoints
type ReviewHandler struct {
	repo             repository.PhotoRepo
	thumbnailService *services.ThumbnailService
	exifService      *services.EXIFService
	libraryDir       string
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(
	repo repository.PhotoRepo,
	thumbnailService *services.ThumbnailService,
	exifService *services.EXIFService,
	libraryDir string,
) *ReviewHandler {
	return &ReviewHandler{
		repo:             repo,
		thumbnailService: thumbnailService,
		exifService:      exifService,
		libraryDir:       libraryDir,
	}
}

// List returns reviewable photos, filterable by state and capture month/day
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{
		Page:     1,
		PageSize: 50,
	}

	if state := r.URL.Query().Get("state"); state != "" {
		rs := models.ReviewState(state)
		if !rs.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid review state.")
			return
		}
		filter.State = rs
	}

	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			respondError(w, http.StatusBadRequest, "Invalid month.")
			return
		}
		filter.Month = month
	}

	if dayStr := r.URL.Query().Get("day"); dayStr != "" {
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < 1 || day > 31 {
			respondError(w, http.StatusBadRequest, "Invalid day.")
			return
		}
		filter.Day = day
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if sizeStr := r.URL.Query().Get("pageSize"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 && size <= 200 {
			filter.PageSize = size
		}
	}

	photos, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		observability.WithContext(r.Context()).Errorf("Error listing photos: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	resp := models.ReviewListResponse{
		Photos:     make([]models.ReviewPhotoResponse, 0, len(photos)),
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}
	for _, p := range photos {
		resp.Photos = append(resp.Photos, models.ReviewPhotoResponse{
			ID:             p.ID,
			Path:           p.Path,
			CapturedAt:     p.CapturedAt,
			Caption:        p.Caption,
			City:           p.City,
			ReviewState:    string(p.ReviewState),
			LastFeaturedAt: p.LastFeaturedAt,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// SetReview updates a photo's review state and optionally its caption
func (h *ReviewHandler) SetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Photo ID is required.")
		return
	}

	var req models.SetReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	state := models.ReviewState(req.State)
	if !state.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid review state.")
		return
	}

	if err := h.repo.SetReviewState(r.Context(), id, state); err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			respondError(w, http.StatusNotFound, "Photo not found.")
			return
		}
		observability.WithContext(r.Context()).WithField("photo_id", id).Errorf("Error setting review state: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	if req.Caption != nil {
		if err := h.repo.SetCaption(r.Context(), id, *req.Caption); err != nil {
			observability.WithContext(r.Context()).WithField("photo_id", id).Errorf("Error setting caption: %v", err)
			respondError(w, http.StatusInternalServerError, "Database error.")
			return
		}
	}

	photo, err := h.repo.GetByID(r.Context(), id)
	if err != nil || photo == nil {
		respondError(w, http.StatusInternalServerError, "Failed to reload photo.")
		return
	}

	respondJSON(w, http.StatusOK, models.ReviewPhotoResponse{
		ID:             photo.ID,
		Path:           photo.Path,
		CapturedAt:     photo.CapturedAt,
		Caption:        photo.Caption,
		City:           photo.City,
		ReviewState:    string(photo.ReviewState),
		LastFeaturedAt: photo.LastFeaturedAt,
	})
}

// Thumbnail serves a review thumbnail, generated on the fly
func (h *ReviewHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Photo ID is required.")
		return
	}

	photo, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", id).Errorf("Error loading photo: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	fullPath := filepath.Join(h.libraryDir, filepath.FromSlash(photo.Path))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", id).Errorf("Error reading photo file: %v", err)
		respondError(w, http.StatusNotFound, "Photo file is missing.")
		return
	}

	orientation := 1
	if exifData, exifErr := h.exifService.ExtractFromBytes(data); exifErr == nil {
		orientation = exifData.Orientation
	}

	thumb, err := h.thumbnailService.Generate(data, photo.Path, orientation)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", id).Errorf("Error generating thumbnail: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate thumbnail.")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(thumb)
}
