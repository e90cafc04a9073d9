package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// FilesHandler serves original library files read-only
type FilesHandler struct {
	libraryDir string
}

// NewFilesHandler creates a new FilesHandler
func NewFilesHandler(libraryDir string) *FilesHandler {
	return &FilesHandler{libraryDir: libraryDir}
}

// Serve streams a library file identified by its relative path. Paths that
// escape the library root are rejected.
func (h *FilesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	relPath := chi.URLParam(r, "*")
	if relPath == "" {
		respondError(w, http.StatusBadRequest, "File path is required.")
		return
	}

	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		respondError(w, http.StatusBadRequest, "Invalid file path.")
		return
	}

	fullPath := filepath.Join(h.libraryDir, cleaned)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		respondError(w, http.StatusNotFound, "File not found.")
		return
	}

	http.ServeFile(w, r, fullPath)
}
