// Package handler is the HTTP layer: it parses requests, calls services,
// and writes JSON. No business rules live here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/auth"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/service"
)

// PostHandler serves the feed and post submission endpoints.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// listResponse is the paginated feed payload. NextCursor is null on the
// last page; clients pass it back verbatim as ?cursor= for the next one.
type listResponse struct {
	Posts      []model.Post `json:"posts"`
	NextCursor *time.Time   `json:"nextCursor"`
}

// HandleList serves the feed.
//
// HTTP: GET /api/posts?scope=top|user&userId=&limit=&cursor=
//
// scope defaults to "top". cursor is an RFC 3339 timestamp (nanosecond
// precision accepted) taken from a previous page's nextCursor.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope := q.Get("scope")
	if scope == "" {
		scope = service.ScopeTop
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	} else {
		limit = service.DefaultListLimit
	}

	var cursor *time.Time
	if raw := q.Get("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("cursor", "cursor must be an RFC 3339 timestamp"))
			return
		}
		cursor = &t
	}

	posts, nextCursor, err := h.posts.List(r.Context(), scope, q.Get("userId"), limit, cursor)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}

	writeJSON(w, http.StatusOK, listResponse{Posts: posts, NextCursor: nextCursor})
}

// HandleRandom serves the spotlight: one uniformly random post from the
// current public feed.
//
// HTTP: GET /api/posts/random
//
// An empty feed is not an error; the response is {"post": null}.
func (h *PostHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Random(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*model.Post{"post": post})
}

// createPostRequest is the submission payload. The image is uploaded
// separately first; imageKey is the key the upload endpoint returned.
type createPostRequest struct {
	ImageKey string `json:"imageKey"`
}

// HandleCreate submits a new post for the authenticated user.
//
// HTTP: POST /api/posts (auth required)
//
// On success the response includes the post with its future publishAt,
// and a 429 with retryAt when the author is still in cooldown.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	post, err := h.posts.Create(r.Context(), userID, req.ImageKey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"post":    post,
		"message": "your photo will appear quietly, sometime soon",
	})
}
