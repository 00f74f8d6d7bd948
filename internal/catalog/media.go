package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"galleria/internal/database"
	"galleria/internal/logging"
)

// UpdateRequest carries an administrative edit of an existing record.
// The tag string fully replaces the record's keyword set.
type UpdateRequest struct {
	Title       string
	Description string
	CategoryID  int64
	Tags        string
}

// Update edits a record's metadata and reconciles its keywords against the
// new tag string. Keywords dropped from the record are detached but their
// rows survive for other records.
func (c *Coordinator) Update(ctx context.Context, id int64, req UpdateRequest) (*database.MediaItem, error) {
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return nil, &ValidationError{Field: "title", Reason: "title is required"}
	case utf8.RuneCountInString(title) > maxTitleLength:
		return nil, &ValidationError{Field: "title", Reason: fmt.Sprintf("title exceeds %d characters", maxTitleLength)}
	}
	if req.CategoryID <= 0 {
		return nil, &ValidationError{Field: "categoryId", Reason: "category is required"}
	}
	exists, err := c.db.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return nil, &PersistenceError{Op: "failed to check category", Err: err}
	}
	if !exists {
		return nil, &NotFoundError{Resource: "category", ID: strconv.FormatInt(req.CategoryID, 10)}
	}

	// edits go through the administrative fetch so hidden records stay
	// editable
	current, err := c.db.GetMediaAny(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
		}
		return nil, &PersistenceError{Op: "failed to load media record", Err: err}
	}

	names := ParseTags(req.Tags)
	existing, err := c.db.FindKeywordsByText(ctx, names)
	if err != nil {
		return nil, &PersistenceError{Op: "failed to look up keywords", Err: err}
	}
	diff := Reconcile(current.Keywords, existing, names)

	current.Title = title
	current.Description = req.Description
	current.CategoryID = req.CategoryID

	if err := c.db.UpdateMedia(ctx, current, diff.Attach, diff.Detach, diff.Create); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
		}
		return nil, &PersistenceError{Op: "failed to update media record", Err: err}
	}

	return c.db.GetMediaAny(ctx, id)
}

// SoftDelete hides a record from the catalog. Blobs and the row itself
// stay put, so the action is reversible at the database level.
func (c *Coordinator) SoftDelete(ctx context.Context, id int64) error {
	err := c.db.SoftDeleteMedia(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return &PersistenceError{Op: "failed to hide media record", Err: err}
	}
	return nil
}

// Destroy permanently removes a record and makes a best-effort attempt to
// remove its blobs. The row goes first; a leftover blob is garbage, a
// dangling row is corruption.
func (c *Coordinator) Destroy(ctx context.Context, id int64) error {
	item, err := c.db.GetMediaAny(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
		}
		return &PersistenceError{Op: "failed to load media record", Err: err}
	}

	if err := c.db.DeleteMedia(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
		}
		return &PersistenceError{Op: "failed to delete media record", Err: err}
	}

	c.cleanupBlobs(item.FilePath, item.ThumbnailPath)
	logging.Info("destroyed media %d and its assets", id)
	return nil
}

// Get fetches a record for normal viewing. Hidden records are not found.
func (c *Coordinator) Get(ctx context.Context, id int64) (*database.MediaItem, error) {
	item, err := c.db.GetMedia(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
	}
	return item, err
}
