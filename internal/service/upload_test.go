package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/silentgallery/server/internal/apperror"
)

// memoryStore captures saved blobs in memory.
type memoryStore struct {
	keys []string
	data map[string]string
}

func (m *memoryStore) Save(_ context.Context, key, _ string, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.keys = append(m.keys, key)
	m.data[key] = string(b)
	return "http://localhost:8080/uploads/" + key, nil
}

func newTestUploadService(t *testing.T) (*UploadService, *memoryStore) {
	t.Helper()
	store := &memoryStore{}
	return NewUploadService(store, testLogger(t)), store
}

func TestUpload(t *testing.T) {
	svc, store := newTestUploadService(t)

	body := strings.NewReader("fake image bytes")
	key, url, err := svc.Upload(context.Background(), "Sunset.JPG", int64(body.Len()), "image/jpeg", body)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %q, want lowercase .jpg suffix", key)
	}
	if strings.Contains(key, "Sunset") {
		t.Errorf("key %q leaks the original filename", key)
	}
	if url != "http://localhost:8080/uploads/"+key {
		t.Errorf("url = %q", url)
	}
	if store.data[key] != "fake image bytes" {
		t.Errorf("stored bytes = %q", store.data[key])
	}
}

func TestUpload_UniqueKeys(t *testing.T) {
	svc, store := newTestUploadService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		body := strings.NewReader("x")
		if _, _, err := svc.Upload(ctx, "same.png", 1, "image/png", body); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
	}

	seen := make(map[string]bool)
	for _, k := range store.keys {
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestUpload_RejectsBadExtension(t *testing.T) {
	svc, _ := newTestUploadService(t)
	ctx := context.Background()

	for _, name := range []string{"notes.txt", "archive.zip", "script.sh", "noext", "image.svg"} {
		_, _, err := svc.Upload(ctx, name, 10, "application/octet-stream", strings.NewReader("data"))
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Upload(%q) error = %v, want validation error", name, err)
		}
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	svc, _ := newTestUploadService(t)

	_, _, err := svc.Upload(context.Background(), "big.png", MaxUploadSize+1, "image/png", strings.NewReader(""))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Upload() oversize error = %v, want validation error", err)
	}
}

func TestUpload_RejectsEmpty(t *testing.T) {
	svc, _ := newTestUploadService(t)

	_, _, err := svc.Upload(context.Background(), "empty.png", 0, "image/png", strings.NewReader(""))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Upload() empty error = %v, want validation error", err)
	}
}
