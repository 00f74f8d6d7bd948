package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"galleria/internal/blob"
	"galleria/internal/database"
	"galleria/internal/logging"
	"galleria/internal/metrics"
)

const (
	maxTitleLength = 100
	uploadDir      = "uploads"
)

// Thumbnailer produces a thumbnail for a stored original and returns its
// blob path.
type Thumbnailer interface {
	Generate(ctx context.Context, originalPath string, kind database.MediaType, override io.Reader) (string, error)
}

// Coordinator drives the multi-step ingestion write and the rest of the
// media lifecycle. It owns the ordering guarantee between the blob store
// and the catalog: originals hit the blob store before any row exists, so
// a crash mid-sequence can orphan a blob but never dangle a record.
type Coordinator struct {
	db     *database.Database
	blobs  blob.Store
	thumbs Thumbnailer
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(db *database.Database, blobs blob.Store, thumbs Thumbnailer) *Coordinator {
	return &Coordinator{db: db, blobs: blobs, thumbs: thumbs}
}

// UploadRequest carries one ingestion. Thumbnail, when non-nil, overrides
// generation and is stored verbatim. UserID is the authenticated caller,
// never client-supplied metadata.
type UploadRequest struct {
	Title       string
	Description string
	CategoryID  int64
	Tags        string
	FileName    string
	ContentType string
	File        io.Reader
	Thumbnail   io.Reader
	UserID      string
}

// countingReader tracks bytes consumed so ingestion volume can be metered.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Ingest validates the request, stores the original and its thumbnail, and
// commits the record with its keywords in one transaction. Any failure
// after the blob write triggers best-effort deletion of what was stored.
func (c *Coordinator) Ingest(ctx context.Context, req UploadRequest) (*database.MediaItem, error) {
	kind := classify(req.ContentType)
	start := time.Now()

	item, err := c.ingest(ctx, req, kind)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IngestTotal.WithLabelValues(string(kind), status).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	return item, err
}

func (c *Coordinator) ingest(ctx context.Context, req UploadRequest, kind database.MediaType) (*database.MediaItem, error) {
	if err := c.validate(ctx, req); err != nil {
		return nil, err
	}

	// peek one byte so a zero-length upload fails before any side effects
	first := make([]byte, 1)
	n, err := io.ReadFull(req.File, first)
	if n == 0 {
		if err == io.EOF {
			return nil, &ValidationError{Field: "file", Reason: "file is empty"}
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	body := &countingReader{r: io.MultiReader(bytes.NewReader(first[:n]), req.File)}

	// blob first, row second
	filePath := path.Join(uploadDir, uuid.NewString()+"_"+sanitizeFileName(req.FileName))
	if err := c.blobs.Put(filePath, body); err != nil {
		return nil, &PersistenceError{Op: "failed to store original asset", Err: err}
	}
	metrics.IngestBytesTotal.Add(float64(body.n))

	thumbPath, err := c.thumbs.Generate(ctx, filePath, kind, req.Thumbnail)
	if err != nil {
		c.cleanupBlobs(filePath)
		return nil, &ThumbnailError{Err: err}
	}

	item := &database.MediaItem{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		FilePath:      filePath,
		ThumbnailPath: thumbPath,
		Type:          kind,
		UploadDate:    time.Now().UTC(),
		CategoryID:    req.CategoryID,
		UserID:        req.UserID,
	}

	// new records reconcile against an empty keyword set, so the diff is
	// pure attach/create
	names := ParseTags(req.Tags)
	existing, err := c.db.FindKeywordsByText(ctx, names)
	if err != nil {
		c.cleanupBlobs(filePath, thumbPath)
		return nil, &PersistenceError{Op: "failed to look up keywords", Err: err}
	}
	diff := Reconcile(nil, existing, names)

	if err := c.db.CreateMedia(ctx, item, diff.Attach, diff.Create); err != nil {
		c.cleanupBlobs(filePath, thumbPath)
		return nil, &PersistenceError{Op: "failed to commit media record", Err: err}
	}

	item.Keywords, err = c.db.GetMediaKeywords(ctx, item.ID)
	if err != nil {
		logging.Warn("failed to read back keywords for media %d: %v", item.ID, err)
	}
	logging.Info("ingested %s %q as media %d (%d bytes)", kind, item.Title, item.ID, body.n)
	return item, nil
}

func (c *Coordinator) validate(ctx context.Context, req UploadRequest) error {
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return &ValidationError{Field: "title", Reason: "title is required"}
	case utf8.RuneCountInString(title) > maxTitleLength:
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("title exceeds %d characters", maxTitleLength)}
	}

	if req.File == nil {
		return &ValidationError{Field: "file", Reason: "file is required"}
	}
	if strings.TrimSpace(req.FileName) == "" {
		return &ValidationError{Field: "file", Reason: "filename is required"}
	}
	if req.UserID == "" {
		return &ValidationError{Field: "user", Reason: "owner is required"}
	}

	if req.CategoryID <= 0 {
		return &ValidationError{Field: "categoryId", Reason: "category is required"}
	}
	exists, err := c.db.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return &PersistenceError{Op: "failed to check category", Err: err}
	}
	if !exists {
		return &NotFoundError{Resource: "category", ID: strconv.FormatInt(req.CategoryID, 10)}
	}

	return nil
}

// classify maps a declared content type to a media kind. Anything that is
// not video/* counts as a photo.
func classify(contentType string) database.MediaType {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return database.MediaTypeVideo
	}
	return database.MediaTypePhoto
}

// sanitizeFileName strips directory components and characters that would
// confuse the blob store path rules.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "" {
		return "upload"
	}
	return name
}

// cleanupBlobs is the compensating action for failures after the blob
// write. Deletion is best effort; a leftover blob is garbage, not
// corruption.
func (c *Coordinator) cleanupBlobs(paths ...string) {
	for _, p := range paths {
		if err := c.blobs.Delete(p); err != nil {
			logging.Warn("failed to clean up blob %s: %v", p, err)
		}
	}
}
