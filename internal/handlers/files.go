package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gorilla/mux"

	"galleria/internal/logging"
)

// GetFile streams a stored blob. The blob store's own path rules reject
// traversal attempts, so the raw path variable is safe to pass through.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	blobPath := mux.Vars(r)["path"]

	reader, err := h.blobs.Open(blobPath)
	if err != nil {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	if ct := mime.TypeByExtension(path.Ext(blobPath)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		// client likely went away mid-transfer
		logging.Debug("file stream aborted for %s: %v", blobPath, err)
	}
}
