package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores images as plain files in a directory. The server mounts
// that directory at /uploads/, so the returned URL is simply
// {baseURL}/uploads/{key}.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates the upload directory if needed and returns a Local
// store rooted there.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir %s: %w", dir, err)
	}
	return &Local{dir: dir, baseURL: baseURL}, nil
}

// Save writes the body to {dir}/{key}.
//
// filepath.Base strips any path components from the key — a key is an
// opaque generated name, never a path, and this keeps a malformed one
// from escaping the upload directory.
func (l *Local) Save(_ context.Context, key, _ string, body io.Reader) (string, error) {
	key = filepath.Base(key)

	f, err := os.Create(filepath.Join(l.dir, key))
	if err != nil {
		return "", fmt.Errorf("storage: creating file for %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: closing %s: %w", key, err)
	}

	return l.baseURL + "/uploads/" + key, nil
}
