// Package handlers implements the HTTP API: media upload and lifecycle,
// gallery queries, categories, share links, authentication, and health
// probes. Handlers translate between HTTP and the catalog/database layers
// and map the catalog error taxonomy onto status codes.
package handlers
