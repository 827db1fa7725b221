// Package storage abstracts the blob store that holds uploaded images.
//
// Two backends exist: Local (files on disk, served by this process under
// /uploads/) and S3 (any S3-compatible object store). The composition
// root resolves the choice once at startup from configuration — handlers
// and services only ever see the Store interface.
package storage

import (
	"context"
	"io"
)

// Store persists image bytes under a key and returns a public URL the
// stored object can be fetched from.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
}
