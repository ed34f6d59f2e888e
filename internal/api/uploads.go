package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/pcormier/voxnote/internal/audiostore"
)

// UploadsHandler serves stored audio blobs.
type UploadsHandler struct {
	store *audiostore.FS
}

// NewUploadsHandler creates a handler backed by the audio blob store.
func NewUploadsHandler(store *audiostore.FS) *UploadsHandler {
	return &UploadsHandler{store: store}
}

// ServeFile handles GET /uploads/{filename}.
func (h *UploadsHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.store.Resolve(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
