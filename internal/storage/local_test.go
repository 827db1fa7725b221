package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocal_Save(t *testing.T) {
	dir := t.TempDir()

	store, err := NewLocal(dir, "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	url, err := store.Save(context.Background(), "abc123.jpg", "image/jpeg",
		strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if url != "http://localhost:8080/uploads/abc123.jpg" {
		t.Errorf("url = %q, want %q", url, "http://localhost:8080/uploads/abc123.jpg")
	}

	data, err := os.ReadFile(filepath.Join(dir, "abc123.jpg"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("saved content = %q, want %q", data, "fake image bytes")
	}
}

func TestLocal_SaveStripsPathComponents(t *testing.T) {
	dir := t.TempDir()

	store, err := NewLocal(dir, "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	// A key should never contain path separators; if one sneaks through,
	// the file must still land inside the upload directory.
	_, err = store.Save(context.Background(), "../escape.jpg", "image/jpeg",
		strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "escape.jpg")); err != nil {
		t.Errorf("expected file inside upload dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.jpg")); err == nil {
		t.Error("file escaped the upload directory")
	}
}
