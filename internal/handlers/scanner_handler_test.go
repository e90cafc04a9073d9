package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/services"
)

func TestScannerHandler_GetStatus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("image bytes"), 0644))

	svc := services.NewScannerService(newMemPhotoRepo(), services.NewEXIFService(), dir, 24)
	svc.RunSync()
	h := NewScannerHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/scan/status", nil)
	rec := httptest.NewRecorder()
	h.GetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.ScanStatusResponse
	require.NoError(t, decodeBody(rec, &resp))
	assert.False(t, resp.Running)
	assert.True(t, resp.Enabled)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.FilesScanned)
	assert.Equal(t, 1, resp.PhotosAdded)
	assert.Equal(t, float64(100), resp.Progress)
}
