package handlers

import (
	"net/http"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/services"
)

// ScannerHandler handles library scanner API endpoints
type ScannerHandler struct {
	scannerService *services.ScannerService
}

// NewScannerHandler creates a new ScannerHandler
func NewScannerHandler(scannerService *services.ScannerService) *ScannerHandler {
	return &ScannerHandler{
		scannerService: scannerService,
	}
}

func scanStatusResponse(status services.ScanStatus) models.ScanStatusResponse {
	return models.ScanStatusResponse{
		Running:         status.Running,
		Enabled:         status.Enabled,
		RunID:           status.LastRunID,
		LastRun:         status.LastRun,
		LastRunDuration: status.LastRunDuration,
		FilesScanned:    status.FilesScanned,
		PhotosAdded:     status.PhotosAdded,
		Skipped:         status.Skipped,
		Progress:        status.Progress,
		NextRun:         status.NextScheduledRun,
		Errors:          status.Errors,
	}
}

// GetStatus returns the current scanner status
func (h *ScannerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, scanStatusResponse(h.scannerService.GetStatus()))
}

// RunNow triggers an immediate scan
func (h *ScannerHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if h.scannerService.IsRunning() {
		respondError(w, http.StatusConflict, "A scan is already in progress.")
		return
	}

	h.scannerService.RunNow()
	respondJSON(w, http.StatusOK, scanStatusResponse(h.scannerService.GetStatus()))
}