package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/storage"
)

// MaxUploadSize caps uploaded images at 10 MB.
const MaxUploadSize = 10 << 20

// allowedImageExts is the accepted set of file extensions, lowercase,
// without the dot.
var allowedImageExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// UploadService validates and stores images ahead of post creation.
// Upload and post submission are separate steps: the client uploads
// first, gets back a key, then submits the post with that key.
type UploadService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewUploadService wires an UploadService.
func NewUploadService(store storage.Store, logger *slog.Logger) *UploadService {
	return &UploadService{store: store, logger: logger}
}

// Upload validates the file and writes it to the blob store under a
// fresh random key, returning the key and the public URL.
//
// size is the declared length; the HTTP layer additionally hard-caps the
// body with MaxBytesReader so a lying Content-Length can't get past this.
func (s *UploadService) Upload(ctx context.Context, filename string, size int64, contentType string, body io.Reader) (key, url string, err error) {
	if size <= 0 {
		return "", "", apperror.ValidationFailed("file", "file is empty")
	}
	if size > MaxUploadSize {
		return "", "", apperror.ValidationFailed("file", "file exceeds the 10MB limit")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedImageExts[ext] {
		return "", "", apperror.ValidationFailed("file", "file type must be jpg, jpeg, png, gif, or webp")
	}

	key = uuid.NewString() + "." + ext
	url, err = s.store.Save(ctx, key, contentType, io.LimitReader(body, MaxUploadSize))
	if err != nil {
		return "", "", err
	}

	s.logger.Debug("image uploaded",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return key, url, nil
}
