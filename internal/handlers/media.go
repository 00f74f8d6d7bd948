package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"galleria/internal/catalog"
	"galleria/internal/database"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing;
// larger files spill to disk.
const maxUploadMemory = 32 << 20

// Upload ingests a multipart media upload: metadata fields plus the
// original file and an optional thumbnail override.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	categoryID, _ := strconv.ParseInt(r.FormValue("category_id"), 10, 64)

	req := catalog.UploadRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		CategoryID:  categoryID,
		Tags:        r.FormValue("tags"),
		UserID:      user.ID,
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.File = file
		req.FileName = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
	}

	if thumb, _, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		req.Thumbnail = thumb
	}

	item, err := h.catalog.Ingest(r.Context(), req)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, item)
}

// Gallery serves the filtered, paginated gallery query.
// Params: category, q, type, date (YYYY-MM-DD), page.
func (h *Handlers) Gallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter database.GalleryFilter
	if v := q.Get("category"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			filter.CategoryID = &id
		}
	}
	filter.Keyword = q.Get("q")
	// an unparseable kind is ignored, not an error
	if kind, ok := database.ParseMediaType(q.Get("type")); ok {
		filter.Type = kind
	}
	if v := q.Get("date"); v != "" {
		if day, err := time.Parse("2006-01-02", v); err == nil {
			filter.Date = &day
		}
	}

	page := 1
	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}

	result, err := h.db.QueryGallery(r.Context(), filter, page, h.config.PageSize)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, result)
}

// Recent serves the newest uploads for the landing page.
func (h *Handlers) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 12
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	items, err := h.db.RecentMedia(r.Context(), limit)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if items == nil {
		items = []database.GalleryItem{}
	}

	writeJSON(w, items)
}

// GetMedia serves a single record's detail. Hidden records 404.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := mediaID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, item)
}

// UpdateMedia applies an administrative edit including tag reconciliation.
func (h *Handlers) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	id, ok := mediaID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CategoryID  int64  `json:"categoryId"`
		Tags        string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.catalog.Update(r.Context(), id, catalog.UpdateRequest{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, item)
}

// DeleteMedia soft-deletes a record.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	id, ok := mediaID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.SoftDelete(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "deleted"})
}

// PurgeMedia permanently removes a record and its blobs.
func (h *Handlers) PurgeMedia(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}
	id, ok := mediaID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Destroy(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "purged"})
}

// AdminListMedia returns every record including hidden ones.
func (h *Handlers) AdminListMedia(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	items, err := h.db.ListAllMedia(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if items == nil {
		items = []database.MediaItem{}
	}

	writeJSON(w, items)
}

func mediaID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid media id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
