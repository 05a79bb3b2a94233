// Package filestore persists uploaded CV files on local disk.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Store saves and removes uploaded files under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the base directory.
func (s *Store) Dir() string { return s.dir }

// Save writes uploaded content to disk and returns the stored path. Names
// are prefixed with the candidate id and a short random token so repeated
// uploads of the same file never collide.
func (s *Store) Save(candidateID int64, originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "filestore: create dir")
	}

	name := fmt.Sprintf("%d_%s_%s", candidateID, uuid.New().String()[:8], SanitizeFilename(originalName))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "filestore: create file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return "", eris.Wrap(err, "filestore: write file")
	}
	if err := f.Close(); err != nil {
		os.Remove(path) //nolint:errcheck
		return "", eris.Wrap(err, "filestore: close file")
	}
	return path, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "filestore: remove %s", path)
	}
	return nil
}

// SanitizeFilename flattens an uploaded filename to a safe form: the base
// name with anything outside [a-zA-Z0-9._-] replaced by underscores.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "cv.pdf"
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
