// Package catalog implements the media ingestion pipeline and lifecycle.
//
// The Coordinator orchestrates the multi-step write that turns an upload
// into a stored asset plus catalog record: validate, store the original,
// derive a thumbnail, reconcile tags, commit. The blob store and the
// database are independent systems, so the sequence is not one atomic
// transaction; strict ordering (blob first, row second) plus compensating
// blob deletes keep the catalog free of rows pointing at missing assets.
//
// Tag reconciliation is a pure diff over keyword sets, computed by
// Reconcile and applied by the database layer in the same transaction as
// the record write.
package catalog
