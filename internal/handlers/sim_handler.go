package handlers

import (
	"net/http"
	"strconv"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
	"github.com/inktime/server/internal/services"
)

// SimHandler serves the overlay simulator. Simulation renders go through the
// exact rendering path the featured image uses, but never touch review state,
// featured timestamps, or selection records.
type SimHandler struct {
	repo   repository.PhotoRepo
	render *services.RenderService
}

// NewSimHandler creates a new SimHandler
func NewSimHandler(repo repository.PhotoRepo, render *services.RenderService) *SimHandler {
	return &SimHandler{
		repo:   repo,
		render: render,
	}
}

// List returns photos available for simulation
func (h *SimHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{
		Page:     1,
		PageSize: 100,
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}

	photos, _, err := h.repo.List(r.Context(), filter)
	if err != nil {
		observability.WithContext(r.Context()).Errorf("Error listing photos for simulation: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	resp := make([]models.SimPhotoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, models.SimPhotoResponse{
			ID:         p.ID,
			Path:       p.Path,
			CapturedAt: p.CapturedAt,
			Caption:    p.Caption,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// Render renders a photo with optional overlay overrides and streams the PNG
func (h *SimHandler) Render(w http.ResponseWriter, r *http.Request) {
	photoID := r.URL.Query().Get("photoId")
	if photoID == "" {
		respondError(w, http.StatusBadRequest, "photoId query parameter is required.")
		return
	}

	photo, err := h.repo.GetByID(r.Context(), photoID)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", photoID).Errorf("Error loading photo: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	opts := services.RenderOptions{
		CaptionText:  r.URL.Query().Get("caption"),
		DateText:     r.URL.Query().Get("date"),
		LocationText: r.URL.Query().Get("location"),
		FontHint:     r.URL.Query().Get("font"),
	}
	if anchorStr := r.URL.Query().Get("anchor"); anchorStr != "" {
		anchor, ok := services.ParseAnchor(anchorStr)
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid anchor.")
			return
		}
		opts.Anchor = anchor
	}

	data, warnings, err := h.render.RenderPNG(r.Context(), photo, opts)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", photoID).Errorf("Error rendering simulation: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to render image.")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if len(warnings) > 0 {
		for _, warn := range warnings {
			observability.WithContext(r.Context()).WithField("photo_id", photoID).Warnf("Simulation warning: %s", warn)
		}
		w.Header().Set("X-Render-Warnings", strconv.Itoa(len(warnings)))
	}
	w.Write(data)
}
