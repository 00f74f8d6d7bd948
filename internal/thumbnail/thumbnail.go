package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	// register WEBP decoding for uploaded photos
	_ "golang.org/x/image/webp"

	"galleria/internal/blob"
	"galleria/internal/database"
	"galleria/internal/logging"
	"galleria/internal/metrics"
)

const (
	// thumbnails are square, cropped to fill
	thumbWidth  = 400
	thumbHeight = 400

	// frame offset for video snapshots
	videoSeekOffset = "00:00:01"

	thumbnailDir = "uploads/thumbnails"
)

// Generator produces gallery thumbnails into the blob store.
type Generator struct {
	blobs      blob.Store
	ffmpegPath string
	timeout    time.Duration
}

// New creates a Generator. ffmpegPath may name a binary on PATH; timeout
// bounds each ffmpeg invocation.
func New(blobs blob.Store, ffmpegPath string, timeout time.Duration) *Generator {
	return &Generator{
		blobs:      blobs,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
	}
}

// Generate produces a thumbnail for the stored original and returns its
// blob path. A non-empty override is stored verbatim, skipping generation
// entirely; an empty override stream is treated as absent. Photos are
// cropped to fill 400x400; videos get a single frame extracted one second
// in, stored at its native size.
func (g *Generator) Generate(ctx context.Context, originalPath string, kind database.MediaType, override io.Reader) (string, error) {
	if override != nil {
		first := make([]byte, 1)
		if n, _ := io.ReadFull(override, first); n == 0 {
			override = nil
		} else {
			override = io.MultiReader(bytes.NewReader(first[:n]), override)
		}
	}

	source := sourceLabel(kind, override)
	start := time.Now()

	thumbPath, err := g.generate(ctx, originalPath, kind, override)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ThumbnailTotal.WithLabelValues(source, status).Inc()
	metrics.ThumbnailDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	return thumbPath, err
}

func (g *Generator) generate(ctx context.Context, originalPath string, kind database.MediaType, override io.Reader) (string, error) {
	thumbPath := Path(originalPath)

	if override != nil {
		if err := g.blobs.Put(thumbPath, override); err != nil {
			return "", fmt.Errorf("failed to store thumbnail override: %w", err)
		}
		return thumbPath, nil
	}

	switch kind {
	case database.MediaTypeVideo:
		return thumbPath, g.videoFrame(ctx, originalPath, thumbPath)
	default:
		return thumbPath, g.photoCrop(originalPath, thumbPath)
	}
}

// Path returns the blob path a thumbnail for the given original lives at.
func Path(originalPath string) string {
	base := path.Base(originalPath)
	ext := path.Ext(base)
	return path.Join(thumbnailDir, "thumb_"+strings.TrimSuffix(base, ext)+".jpg")
}

func sourceLabel(kind database.MediaType, override io.Reader) string {
	if override != nil {
		return "override"
	}
	if kind == database.MediaTypeVideo {
		return "video"
	}
	return "photo"
}

// photoCrop decodes the original and writes a center-cropped square
// thumbnail.
func (g *Generator) photoCrop(originalPath, thumbPath string) error {
	reader, err := g.blobs.Open(originalPath)
	if err != nil {
		return fmt.Errorf("failed to open original: %w", err)
	}
	defer reader.Close()

	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := g.blobs.Put(thumbPath, &buf); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return nil
}

// videoFrame extracts a single frame via ffmpeg. The blob is staged to a
// temp file first since ffmpeg needs a seekable input.
func (g *Generator) videoFrame(ctx context.Context, originalPath, thumbPath string) error {
	reader, err := g.blobs.Open(originalPath)
	if err != nil {
		return fmt.Errorf("failed to open original: %w", err)
	}
	defer reader.Close()

	tmpDir, err := os.MkdirTemp("", "thumb-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "input"+path.Ext(originalPath))
	output := filepath.Join(tmpDir, "frame.jpg")

	f, err := os.Create(input)
	if err != nil {
		return fmt.Errorf("failed to stage video: %w", err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("failed to stage video: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-ss", videoSeekOffset,
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Warn("ffmpeg frame extraction failed for %s: %v", originalPath, err)
		return fmt.Errorf("ffmpeg failed: %w (%s)", err, lastLine(stderr.String()))
	}

	frame, err := os.Open(output)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no frame: %w", err)
	}
	defer frame.Close()

	if err := g.blobs.Put(thumbPath, frame); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
