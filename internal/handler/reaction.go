package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/auth"
	"github.com/silentgallery/server/internal/service"
)

// ReactionHandler serves the reaction endpoints.
type ReactionHandler struct {
	reactions *service.ReactionService
	logger    *slog.Logger
}

// NewReactionHandler creates a ReactionHandler.
func NewReactionHandler(reactions *service.ReactionService, logger *slog.Logger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, logger: logger}
}

// HandleGet returns the aggregate reactions for a post.
//
// HTTP: GET /api/reactions?postId=
func (h *ReactionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		writeError(w, apperror.ValidationFailed("postId", "postId is required"))
		return
	}

	summary, err := h.reactions.Summary(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type reactionRequest struct {
	PostID string `json:"postId"`
	Kind   string `json:"kind"`
}

// HandleSubmit records or replaces the caller's reaction to a post.
//
// HTTP: POST /api/reactions (auth required)
func (h *ReactionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.PostID == "" {
		writeError(w, apperror.ValidationFailed("postId", "postId is required"))
		return
	}

	reaction, err := h.reactions.Submit(r.Context(), req.PostID, userID, req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "reaction recorded",
		"reaction": reaction,
	})
}

// HandleDelete withdraws the caller's reaction from a post. Deleting a
// reaction that was never made still succeeds.
//
// HTTP: DELETE /api/reactions?postId= (auth required)
func (h *ReactionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	postID := r.URL.Query().Get("postId")
	if postID == "" {
		writeError(w, apperror.ValidationFailed("postId", "postId is required"))
		return
	}

	if err := h.reactions.Remove(r.Context(), postID, userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "reaction removed"})
}
