package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"galleria/internal/blob"
	"galleria/internal/catalog"
	"galleria/internal/database"
	"galleria/internal/startup"
	"galleria/internal/thumbnail"
)

// stubThumbs avoids image fixtures and ffmpeg in handler tests.
type stubThumbs struct {
	blobs blob.Store
	err   error
}

func (s *stubThumbs) Generate(_ context.Context, originalPath string, _ database.MediaType, override io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	thumbPath := thumbnail.Path(originalPath)
	src := override
	if src == nil {
		src = strings.NewReader("thumb-bytes")
	}
	if err := s.blobs.Put(thumbPath, src); err != nil {
		return "", err
	}
	return thumbPath, nil
}

type testEnv struct {
	handlers   *Handlers
	router     *mux.Router
	db         *database.Database
	store      blob.Store
	thumbs     *stubThumbs
	categoryID int64
	adminToken string
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := blob.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}

	ctx := context.Background()
	categoryID, err := db.CreateCategory(ctx, "Events")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	adminID, err := db.CreateUser(ctx, "admin@example.com", "pw", true)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	adminToken, err := db.CreateSession(ctx, adminID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	thumbs := &stubThumbs{blobs: store}
	coord := catalog.NewCoordinator(db, store, thumbs)
	config := &startup.Config{
		PageSize:        3,
		BaseURL:         "http://gallery.test",
		SessionDuration: time.Hour,
	}
	h := New(db, coord, store, config)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/api/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/api/auth/check", h.CheckAuth).Methods("GET")
	r.HandleFunc("/api/media", h.Upload).Methods("POST")
	r.HandleFunc("/api/media", h.Gallery).Methods("GET")
	r.HandleFunc("/api/media/recent", h.Recent).Methods("GET")
	r.HandleFunc("/api/media/{id}", h.GetMedia).Methods("GET")
	r.HandleFunc("/api/media/{id}", h.UpdateMedia).Methods("PUT")
	r.HandleFunc("/api/media/{id}", h.DeleteMedia).Methods("DELETE")
	r.HandleFunc("/api/media/{id}/purge", h.PurgeMedia).Methods("DELETE")
	r.HandleFunc("/api/media/{id}/share", h.CreateShare).Methods("POST")
	r.HandleFunc("/api/admin/media", h.AdminListMedia).Methods("GET")
	r.HandleFunc("/api/categories", h.ListCategories).Methods("GET")
	r.HandleFunc("/api/categories", h.CreateCategory).Methods("POST")
	r.HandleFunc("/api/categories/{id}", h.DeleteCategory).Methods("DELETE")
	r.HandleFunc("/share/{token}", h.GetShared).Methods("GET")
	r.HandleFunc("/files/{path:.*}", h.GetFile).Methods("GET")
	r.Use(h.AuthMiddleware)

	return &testEnv{
		handlers:   h,
		router:     r,
		db:         db,
		store:      store,
		thumbs:     thumbs,
		categoryID: categoryID,
		adminToken: adminToken,
	}
}

// do runs a request through the router, optionally authenticated.
func (e *testEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)

	for _, path := range []string{"/health", "/livez", "/readyz"} {
		rec := env.do(t, httptest.NewRequest("GET", path, nil), "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestLoginLogout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)

	body := strings.NewReader(`{"email":"admin@example.com","password":"pw"}`)
	rec := env.do(t, httptest.NewRequest("POST", "/api/auth/login", body), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	var resp AuthResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || !resp.IsAdmin {
		t.Errorf("login response = %+v, want success admin", resp)
	}

	cookies := rec.Result().Cookies()
	var session string
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			session = c.Value
		}
	}
	if session == "" {
		t.Fatal("login did not set a session cookie")
	}

	// the cookie authenticates subsequent requests
	req := httptest.NewRequest("GET", "/api/media", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
	if rec := env.do(t, req, ""); rec.Code != http.StatusOK {
		t.Errorf("authenticated gallery = %d, want 200", rec.Code)
	}

	// logout revokes it
	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
	if rec := env.do(t, req, ""); rec.Code != http.StatusOK {
		t.Fatalf("logout = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/media", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
	if rec := env.do(t, req, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("gallery after logout = %d, want 401", rec.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)

	body := strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`)
	rec := env.do(t, httptest.NewRequest("POST", "/api/auth/login", body), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareRejectsAnonymousAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)

	rec := env.do(t, httptest.NewRequest("GET", "/api/media", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous gallery = %d, want 401", rec.Code)
	}

	rec = env.do(t, httptest.NewRequest("GET", "/api/media", nil), "bogus-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token gallery = %d, want 401", rec.Code)
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	ctx := context.Background()

	body := strings.NewReader(`{"name":"Training"}`)
	rec := env.do(t, httptest.NewRequest("POST", "/api/categories", body), env.adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category = %d, want 201", rec.Code)
	}
	var created database.Category
	decodeBody(t, rec, &created)

	rec = env.do(t, httptest.NewRequest("GET", "/api/categories", nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories = %d, want 200", rec.Code)
	}
	var categories []database.Category
	decodeBody(t, rec, &categories)
	if len(categories) != 2 {
		t.Errorf("categories = %v, want 2", categories)
	}

	rec = env.do(t, httptest.NewRequest("DELETE", "/api/categories/"+itoa(created.ID), nil), env.adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete category = %d, want 200", rec.Code)
	}

	remaining, err := env.db.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("categories after delete = %v, want 1", remaining)
	}
}

func TestCategoryCreateRequiresAdmin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupHandlers(t)
	ctx := context.Background()

	userID, err := env.db.CreateUser(ctx, "viewer@example.com", "pw", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, err := env.db.CreateSession(ctx, userID, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	body := strings.NewReader(`{"name":"Nope"}`)
	rec := env.do(t, httptest.NewRequest("POST", "/api/categories", body), token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin create = %d, want 403", rec.Code)
	}
}
