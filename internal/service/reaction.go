package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
)

// ReactionService owns the reaction rules: one abstract reaction per
// user per post, chosen from a small fixed vocabulary, no counts by
// identity ever exposed.
type ReactionService struct {
	posts     repository.PostRepository
	reactions repository.ReactionRepository
	logger    *slog.Logger
}

// NewReactionService wires a ReactionService.
func NewReactionService(posts repository.PostRepository, reactions repository.ReactionRepository, logger *slog.Logger) *ReactionService {
	return &ReactionService{posts: posts, reactions: reactions, logger: logger}
}

// ReactionSummary is the aggregate view of a post's reactions.
// ReactionCounts only carries kinds that were actually used;
// UserReactions maps each reacting user to their kind, so a client can
// look its own up without a second call.
type ReactionSummary struct {
	PostID         string            `json:"postId"`
	ReactionCounts map[string]int    `json:"reactionCounts"`
	UserReactions  map[string]string `json:"userReactions"`
	Total          int               `json:"total"`
}

// Submit records userID's reaction to a post, replacing any previous
// one — a user holds at most one reaction per post, and re-reacting
// switches kind rather than stacking.
//
// Reacting is allowed on any unexpired post, including one whose
// publication is still drifting; only expiry closes the window.
func (s *ReactionService) Submit(ctx context.Context, postID, userID, kind string) (*model.Reaction, error) {
	if !model.ValidReactionKind(kind) {
		return nil, apperror.ValidationFailed("kind", "kind must be one of moon, feather, water, fire, leaf")
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if time.Now().After(post.ExpireAt) {
		return nil, apperror.ValidationFailed("postId", "post has expired")
	}

	reaction := &model.Reaction{
		PostID: postID,
		UserID: userID,
		Kind:   kind,
	}
	if err := s.reactions.UpsertReaction(ctx, reaction); err != nil {
		return nil, err
	}

	s.logger.Debug("reaction recorded",
		slog.String("post_id", postID),
		slog.String("kind", kind),
	)
	return reaction, nil
}

// Summary aggregates a post's reactions.
func (s *ReactionService) Summary(ctx context.Context, postID string) (*ReactionSummary, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	reactions, err := s.reactions.ListReactionsByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	summary := &ReactionSummary{
		PostID:         postID,
		ReactionCounts: make(map[string]int),
		UserReactions:  make(map[string]string),
	}
	for _, r := range reactions {
		summary.ReactionCounts[r.Kind]++
		summary.Total++
		if r.UserID != "" {
			summary.UserReactions[r.UserID] = r.Kind
		}
	}
	return summary, nil
}

// Remove withdraws userID's reaction from a post. Removing a reaction
// that does not exist succeeds quietly.
func (s *ReactionService) Remove(ctx context.Context, postID, userID string) error {
	return s.reactions.DeleteReaction(ctx, postID, userID)
}
