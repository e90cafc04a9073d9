package handlers

import (
	"errors"
	"net/http"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
	"github.com/inktime/server/internal/services"
)

// TodayHandler serves the featured image of the day
type TodayHandler struct {
	selector *services.SelectorService
	photos   repository.PhotoRepo
	render   *services.RenderService
}

// NewTodayHandler creates a new TodayHandler
func NewTodayHandler(selector *services.SelectorService, photos repository.PhotoRepo, render *services.RenderService) *TodayHandler {
	return &TodayHandler{
		selector: selector,
		photos:   photos,
		render:   render,
	}
}

// TodayImage resolves today's featured photo and streams the rendered PNG.
// The first request of a day resolves the selection; every later request
// that day re-renders the same photo.
func (h *TodayHandler) TodayImage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.selector.SelectToday(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrNoEligiblePhotos) {
			respondError(w, http.StatusNotFound, "No eligible photos in the library.")
			return
		}
		observability.WithContext(r.Context()).Errorf("Error resolving today's selection: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to resolve today's photo.")
		return
	}

	photo, err := h.photos.GetByID(r.Context(), rec.PhotoID)
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", rec.PhotoID).Errorf("Error loading photo: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "Featured photo no longer exists.")
		return
	}

	data, warnings, err := h.render.RenderPNG(r.Context(), photo, services.RenderOptions{})
	if err != nil {
		observability.WithContext(r.Context()).WithField("photo_id", photo.ID).Errorf("Error rendering photo: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to render image.")
		return
	}
	for _, warn := range warnings {
		observability.WithContext(r.Context()).WithField("photo_id", photo.ID).Warnf("Render warning: %s", warn)
	}

	// The same URL serves a different image tomorrow
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Photo-Day", rec.Day)
	w.Write(data)
}
