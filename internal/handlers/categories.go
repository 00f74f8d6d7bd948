package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"galleria/internal/database"
)

// ListCategories returns the non-deleted categories for filter dropdowns.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.ListCategories(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if categories == nil {
		categories = []database.Category{}
	}

	writeJSON(w, categories)
}

// CreateCategory adds a category.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	id, err := h.db.CreateCategory(r.Context(), name)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, database.Category{ID: id, Name: name})
}

// DeleteCategory soft-deletes a category. Existing media keep their
// reference to it.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid category id", http.StatusBadRequest)
		return
	}

	if err := h.db.SoftDeleteCategory(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "deleted"})
}
