package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/crucial707/blog/internal/upload"
	"github.com/go-chi/chi/v5"
)

// ==========================
// Uploaded images (read-only)
// ==========================
type UploadHandler struct {
	Store *upload.Store
}

func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		JSONError(w, "not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, h.Store.Path(name))
}
