package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleria_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galleria_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galleria_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleria_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galleria_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galleria_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Ingestion metrics
var (
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleria_ingest_total",
			Help: "Total number of media ingestion attempts",
		},
		[]string{"kind", "status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "galleria_ingest_duration_seconds",
			Help:    "End-to-end duration of a media ingestion",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galleria_ingest_bytes_total",
			Help: "Total bytes of original assets accepted for ingestion",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleria_thumbnails_total",
			Help: "Total number of thumbnail generation attempts",
		},
		[]string{"source", "status"}, // source: "override", "photo", "video"
	)

	ThumbnailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galleria_thumbnail_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)
)

// Share link metrics
var (
	ShareLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleria_share_lookups_total",
			Help: "Total number of anonymous share-token lookups",
		},
		[]string{"status"}, // "hit", "miss"
	)
)
