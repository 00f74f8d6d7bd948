package handlers

import (
	"net/http"

	"galleria/internal/startup"
)

// HealthCheck reports overall service health including database
// connectivity.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSONError(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// LivenessCheck reports that the process is up. It never touches
// dependencies.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "alive"})
}

// ReadinessCheck reports whether the service can take traffic.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSONError(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// GetVersion reports the build information baked in at link time.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, startup.GetBuildInfo())
}
