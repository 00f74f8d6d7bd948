package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// CreateShare issues a fresh share token for a record, replacing any
// previous one, and returns the public URL. Like edits and deletes, share
// links are minted by administrators.
func (h *Handlers) CreateShare(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	id, ok := mediaID(w, r)
	if !ok {
		return
	}

	token, err := h.catalog.IssueShareToken(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, map[string]string{
		"token":    token,
		"shareUrl": h.config.BaseURL + "/share/" + token,
	})
}

// GetShared resolves a share link anonymously. Hidden and unknown records
// are both a plain 404.
func (h *Handlers) GetShared(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	item, err := h.catalog.ResolveShareToken(r.Context(), token)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, item)
}
