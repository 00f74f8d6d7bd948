package catalog

import "fmt"

// ValidationError reports request input that fails validation before any
// side effects happen.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced resource that does not exist or is
// soft-deleted.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ThumbnailError reports a failed thumbnail generation. The original blob
// has already been cleaned up when this is returned from ingestion.
type ThumbnailError struct {
	Err error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail generation failed: %v", e.Err)
}

func (e *ThumbnailError) Unwrap() error { return e.Err }

// PersistenceError reports a storage-layer failure, either blob or record.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
