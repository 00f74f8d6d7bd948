// Package metrics defines the Prometheus collectors exported by the
// gallery service.
//
// All collectors are registered via promauto at package init and served
// from a dedicated metrics listener (see main.go). Metric names share the
// galleria_ prefix. Labels are kept low-cardinality: HTTP paths are
// normalized by the middleware before being recorded.
package metrics
