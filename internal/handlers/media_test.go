package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"galleria/internal/database"
)

// multipartUpload builds a media upload request body.
func multipartUpload(t *testing.T, fields map[string]string, fileName, fileBody string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := io.WriteString(fw, fileBody); err != nil {
			t.Fatalf("writing file part failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, title string) database.MediaItem {
	t.Helper()

	body, contentType := multipartUpload(t, map[string]string{
		"title":       title,
		"description": "test upload",
		"category_id": itoa(e.categoryID),
		"tags":        "team, offsite",
	}, "photo.jpg", "fake image bytes")

	req := httptest.NewRequest("POST", "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := e.do(t, req, e.adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d, want 201 (body %q)", rec.Code, rec.Body.String())
	}

	var item database.MediaItem
	decodeBody(t, rec, &item)
	return item
}

func TestUploadAndFetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	item := env.upload(t, "Team photo")

	if item.ID == 0 {
		t.Fatal("upload returned no id")
	}
	if len(item.Keywords) != 2 {
		t.Errorf("keywords = %v, want 2", item.Keywords)
	}

	rec := env.do(t, httptest.NewRequest("GET", "/api/media/"+itoa(item.ID), nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail = %d, want 200", rec.Code)
	}
	var got database.MediaItem
	decodeBody(t, rec, &got)
	if got.Title != "Team photo" || got.CategoryName != "Events" {
		t.Errorf("detail = %+v", got)
	}

	// the stored blob is served back
	rec = env.do(t, httptest.NewRequest("GET", "/files/"+got.FilePath, nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("file fetch = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "fake image bytes" {
		t.Errorf("served blob = %q", rec.Body.String())
	}
}

func TestUploadErrorMapping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)

	tests := []struct {
		name     string
		fields   map[string]string
		fileName string
		thumbErr error
		want     int
	}{
		{
			name:     "missing title",
			fields:   map[string]string{"category_id": itoa(env.categoryID)},
			fileName: "a.jpg",
			want:     http.StatusBadRequest,
		},
		{
			name:     "unknown category",
			fields:   map[string]string{"title": "x", "category_id": "9999"},
			fileName: "a.jpg",
			want:     http.StatusNotFound,
		},
		{
			name:   "missing file",
			fields: map[string]string{"title": "x", "category_id": itoa(env.categoryID)},
			want:   http.StatusBadRequest,
		},
		{
			name:     "thumbnail failure",
			fields:   map[string]string{"title": "x", "category_id": itoa(env.categoryID)},
			fileName: "a.jpg",
			thumbErr: errors.New("decode failed"),
			want:     http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.thumbs.err = tt.thumbErr
			defer func() { env.thumbs.err = nil }()

			body, contentType := multipartUpload(t, tt.fields, tt.fileName, "bytes")
			req := httptest.NewRequest("POST", "/api/media", body)
			req.Header.Set("Content-Type", contentType)
			rec := env.do(t, req, env.adminToken)
			if rec.Code != tt.want {
				t.Errorf("upload = %d, want %d (body %q)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGalleryEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	for i := 1; i <= 4; i++ {
		env.upload(t, fmt.Sprintf("Item %d", i))
	}

	// page size is 3 in the test config
	rec := env.do(t, httptest.NewRequest("GET", "/api/media?page=1", nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("gallery = %d, want 200", rec.Code)
	}
	var page database.GalleryPage
	decodeBody(t, rec, &page)
	if page.TotalItems != 4 || page.TotalPages != 2 || len(page.Items) != 3 {
		t.Errorf("page = total %d pages %d items %d, want 4/2/3",
			page.TotalItems, page.TotalPages, len(page.Items))
	}

	// search narrows, page below 1 is treated as 1
	rec = env.do(t, httptest.NewRequest("GET", "/api/media?q=Item+2&page=0", nil), env.adminToken)
	decodeBody(t, rec, &page)
	if page.TotalItems != 1 || page.Page != 1 {
		t.Errorf("filtered page = %+v, want one match on page 1", page)
	}

	// unparseable kind is ignored
	rec = env.do(t, httptest.NewRequest("GET", "/api/media?type=banana", nil), env.adminToken)
	decodeBody(t, rec, &page)
	if page.TotalItems != 4 {
		t.Errorf("bad type filter total = %d, want 4", page.TotalItems)
	}
}

func TestUpdateDeletePurgeFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	item := env.upload(t, "Original")

	body := strings.NewReader(fmt.Sprintf(
		`{"title":"Edited","description":"new","categoryId":%d,"tags":"offsite, extra"}`,
		env.categoryID,
	))
	rec := env.do(t, httptest.NewRequest("PUT", "/api/media/"+itoa(item.ID), body), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	var updated database.MediaItem
	decodeBody(t, rec, &updated)
	if updated.Title != "Edited" || len(updated.Keywords) != 2 {
		t.Errorf("updated = %+v", updated)
	}

	rec = env.do(t, httptest.NewRequest("DELETE", "/api/media/"+itoa(item.ID), nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("soft delete = %d, want 200", rec.Code)
	}
	rec = env.do(t, httptest.NewRequest("GET", "/api/media/"+itoa(item.ID), nil), env.adminToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("detail after soft delete = %d, want 404", rec.Code)
	}

	// hidden records still appear in the admin listing
	rec = env.do(t, httptest.NewRequest("GET", "/api/admin/media", nil), env.adminToken)
	var all []database.MediaItem
	decodeBody(t, rec, &all)
	if len(all) != 1 || !all[0].IsDeleted {
		t.Errorf("admin listing = %+v, want one hidden record", all)
	}

	rec = env.do(t, httptest.NewRequest("DELETE", "/api/media/"+itoa(item.ID)+"/purge", nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge = %d, want 200", rec.Code)
	}
	if env.store.Exists(item.FilePath) {
		t.Error("purge left the original blob")
	}
}

func TestShareEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	item := env.upload(t, "Shared photo")

	rec := env.do(t, httptest.NewRequest("POST", "/api/media/"+itoa(item.ID)+"/share", nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("share = %d, want 200", rec.Code)
	}
	var share map[string]string
	decodeBody(t, rec, &share)
	if share["token"] == "" || !strings.HasPrefix(share["shareUrl"], "http://gallery.test/share/") {
		t.Fatalf("share response = %v", share)
	}

	// the share link works without a session
	rec = env.do(t, httptest.NewRequest("GET", "/share/"+share["token"], nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous share = %d, want 200", rec.Code)
	}
	var shared database.MediaItem
	decodeBody(t, rec, &shared)
	if shared.ID != item.ID {
		t.Errorf("shared id = %d, want %d", shared.ID, item.ID)
	}

	// hiding the record kills the link
	env.do(t, httptest.NewRequest("DELETE", "/api/media/"+itoa(item.ID), nil), env.adminToken)
	rec = env.do(t, httptest.NewRequest("GET", "/share/"+share["token"], nil), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("share after soft delete = %d, want 404", rec.Code)
	}
}

func TestShareRequiresAdmin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	item := env.upload(t, "Not yours to share")

	userID, err := env.db.CreateUser(context.Background(), "viewer@example.com", "pw", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, err := env.db.CreateSession(context.Background(), userID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := env.do(t, httptest.NewRequest("POST", "/api/media/"+itoa(item.ID)+"/share", nil), token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin share = %d, want 403", rec.Code)
	}
}

func TestRecentEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	env.upload(t, "Only one")

	rec := env.do(t, httptest.NewRequest("GET", "/api/media/recent?limit=5", nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent = %d, want 200", rec.Code)
	}
	var items []database.GalleryItem
	decodeBody(t, rec, &items)
	if len(items) != 1 || items[0].Title != "Only one" {
		t.Errorf("recent = %v", items)
	}
}
