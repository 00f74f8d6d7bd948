package blob

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"galleria/internal/logging"
)

// Store is durable byte storage addressed by slash-separated relative paths.
// Originals and thumbnails both live behind this interface so the ingestion
// coordinator never touches the filesystem directly.
type Store interface {
	// Put writes the full contents of r at path, creating parents as needed.
	Put(path string, r io.Reader) error
	// Delete removes the blob at path. Missing paths are not an error.
	Delete(path string) error
	// Exists reports whether a blob is present at path.
	Exists(path string) bool
	// Open returns a reader over the blob at path.
	Open(path string) (io.ReadCloser, error)
}

// DirStore is a Store rooted at a directory on the local filesystem.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at root, creating it if necessary.
func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &DirStore{root: abs}, nil
}

// resolve maps a store path to an absolute filesystem path, rejecting
// anything that would escape the root.
func (s *DirStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("empty blob path")
	}
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid blob path: %s", path)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Put writes the blob, creating parent directories as needed. The write goes
// through a temp file and rename so a crash cannot leave a torn blob at the
// final path.
func (s *DirStore) Put(path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close blob %s: %w", path, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to finalize blob %s: %w", path, err)
	}

	logging.Debug("blob stored: %s", path)
	return nil
}

// Delete removes the blob. Deleting a missing blob succeeds.
func (s *DirStore) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a regular file is present at path.
func (s *DirStore) Exists(path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Open returns a reader over the blob at path.
func (s *DirStore) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return f, nil
}
