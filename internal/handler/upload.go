package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/service"
)

// UploadHandler accepts image uploads ahead of post submission.
type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// HandleUpload stores a multipart image and returns the key to submit a
// post with.
//
// HTTP: POST /api/upload (auth required), multipart form field "file"
//
// The body is hard-capped slightly above the image limit so a client
// that lies about Content-Length gets cut off instead of buffered.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1024)

	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("file", "file exceeds the 10MB limit"))
			return
		}
		writeError(w, apperror.ValidationFailed("body", "request must be a multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "a file field is required"))
		return
	}
	defer file.Close()

	key, url, err := h.uploads.Upload(
		r.Context(),
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"imageKey": key,
		"url":      url,
		"message":  "file uploaded successfully",
	})
}
