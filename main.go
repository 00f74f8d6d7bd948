package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"galleria/internal/blob"
	"galleria/internal/catalog"
	"galleria/internal/database"
	"galleria/internal/handlers"
	"galleria/internal/logging"
	"galleria/internal/middleware"
	"galleria/internal/startup"
	"galleria/internal/thumbnail"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	blobs, err := blob.NewDirStore(config.DataDir)
	if err != nil {
		startup.LogFatal("Failed to initialize blob store: %v", err)
	}

	thumbs := thumbnail.New(blobs, config.FFmpegPath, config.ThumbnailTimeout)
	coord := catalog.NewCoordinator(db, blobs, thumbs)
	h := handlers.New(db, coord, blobs, config)

	// Clean up expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if n, err := db.CleanExpiredSessions(ctx); err != nil {
				logging.Warn("Session cleanup failed: %v", err)
			} else if n > 0 {
				logging.Debug("Cleaned %d expired sessions", n)
			}
			db.UpdateDBMetrics()
		}
	}()

	router := setupRouter(h)

	// Apply authentication middleware
	authedRouter := h.AuthMiddleware(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(authedRouter)

	// Apply metrics middleware
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	// Metrics on a separate listener so the scrape endpoint stays off the
	// public port
	if config.MetricsEnabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			logging.Info("Metrics listening on :%s", config.MetricsPort)
			if err := http.ListenAndServe(":"+config.MetricsPort, metricsMux); err != nil {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv)

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health and version endpoints
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Auth endpoints
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")

	// Media API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/media", h.Upload).Methods("POST")
	api.HandleFunc("/media", h.Gallery).Methods("GET")
	api.HandleFunc("/media/recent", h.Recent).Methods("GET")
	api.HandleFunc("/media/{id}", h.GetMedia).Methods("GET")
	api.HandleFunc("/media/{id}", h.UpdateMedia).Methods("PUT")
	api.HandleFunc("/media/{id}", h.DeleteMedia).Methods("DELETE")
	api.HandleFunc("/media/{id}/purge", h.PurgeMedia).Methods("DELETE")
	api.HandleFunc("/media/{id}/share", h.CreateShare).Methods("POST")
	api.HandleFunc("/admin/media", h.AdminListMedia).Methods("GET")

	// Categories
	api.HandleFunc("/categories", h.ListCategories).Methods("GET")
	api.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	api.HandleFunc("/categories/{id}", h.DeleteCategory).Methods("DELETE")

	// Anonymous share links and stored assets
	r.HandleFunc("/share/{token}", h.GetShared).Methods("GET")
	r.HandleFunc("/files/{path:.*}", h.GetFile).Methods("GET")

	return r
}

func handleShutdown(srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Shutdown initiated (%s)", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	logging.Info("Shutdown complete")
}
