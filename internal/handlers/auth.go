package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"galleria/internal/database"
	"galleria/internal/logging"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "galleria_session"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success   bool   `json:"success"`
	Email     string `json:"email,omitempty"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Login validates credentials and issues a session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		logging.Warn("failed login attempt for %q", req.Email)
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.db.CreateSession(ctx, user.ID, h.config.SessionDuration)
	if err != nil {
		logging.Error("failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.config.SessionDuration),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Info("user %s logged in", user.ID)
	writeJSON(w, AuthResponse{
		Success:   true,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		ExpiresIn: int(h.config.SessionDuration.Seconds()),
	})
}

// Logout ends the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := sessionToken(r); token != "" {
		// best-effort cleanup, logout succeeds regardless
		if err := h.db.DeleteSession(ctx, token); err != nil {
			logging.Error("failed to delete session during logout: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, AuthResponse{Success: true, Message: "logged out"})
}

// CheckAuth reports whether the request carries a valid session.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeJSON(w, AuthResponse{Success: false})
		return
	}

	user, err := h.db.ValidateSession(r.Context(), token)
	if err != nil {
		writeJSON(w, AuthResponse{Success: false})
		return
	}

	writeJSON(w, AuthResponse{Success: true, Email: user.Email, IsAdmin: user.IsAdmin})
}

// sessionToken extracts the session token from the cookie or, failing
// that, an Authorization bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// isPublicPath lists the routes anonymous clients may reach: login
// endpoints, share links, served assets for shared records, and health
// probes.
func isPublicPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/livez", "/readyz", "/version":
		return true
	}
	return strings.HasPrefix(path, "/api/auth/") ||
		strings.HasPrefix(path, "/share/") ||
		strings.HasPrefix(path, "/files/")
}

// AuthMiddleware resolves the session on every request and stows the user
// in the request context. Requests without a valid session are rejected
// unless the path is public.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := h.db.ValidateSession(ctx, token)
		if err != nil {
			// clear the dead cookie so clients stop sending it
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			})
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userContextKey, user)))
	})
}

// requireAdmin guards administrative handlers.
func (h *Handlers) requireAdmin(w http.ResponseWriter, r *http.Request) *database.User {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return nil
	}
	if !user.IsAdmin {
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return nil
	}
	return user
}
