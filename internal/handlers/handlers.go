package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"galleria/internal/blob"
	"galleria/internal/catalog"
	"galleria/internal/database"
	"galleria/internal/logging"
	"galleria/internal/startup"
)

type Handlers struct {
	db      *database.Database
	catalog *catalog.Coordinator
	blobs   blob.Store
	config  *startup.Config
}

func New(db *database.Database, coord *catalog.Coordinator, blobs blob.Store, config *startup.Config) *Handlers {
	return &Handlers{
		db:      db,
		catalog: coord,
		blobs:   blobs,
		config:  config,
	}
}

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated user stowed by AuthMiddleware,
// or nil outside an authenticated request.
func UserFromContext(ctx context.Context) *database.User {
	user, _ := ctx.Value(userContextKey).(*database.User)
	return user
}

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode JSON error response: %v", err)
	}
}

// writeCatalogError maps the catalog error taxonomy onto HTTP statuses.
func writeCatalogError(w http.ResponseWriter, err error) {
	var (
		verr *catalog.ValidationError
		nerr *catalog.NotFoundError
		terr *catalog.ThumbnailError
		perr *catalog.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeJSONError(w, verr.Error(), http.StatusBadRequest)
	case errors.As(err, &nerr):
		writeJSONError(w, nerr.Error(), http.StatusNotFound)
	case errors.As(err, &terr):
		writeJSONError(w, terr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &perr):
		logging.Error("persistence failure: %v", perr)
		writeJSONError(w, "storage failure", http.StatusBadGateway)
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "not found", http.StatusNotFound)
	default:
		logging.Error("unhandled error: %v", err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
	}
}
