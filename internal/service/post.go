package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
	"github.com/silentgallery/server/internal/timewindow"
)

// Feed pagination bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// List scopes.
const (
	ScopeTop  = "top"  // the public feed
	ScopeUser = "user" // one author's archive, expired posts included
)

// PostService owns the posting rules: the daily cooldown, the drifted
// publication window, and feed visibility.
type PostService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	logger *slog.Logger
}

// NewPostService wires a PostService.
func NewPostService(users repository.UserRepository, posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{users: users, posts: posts, logger: logger}
}

// Create submits a new post for userID.
//
// The post does not appear immediately: publication is delayed by a
// random drift of up to three hours, and the post expires seven days
// after it becomes public. Submitting starts the author's 24-hour
// cooldown, measured from submission, not publication.
//
// The repository re-checks the cooldown atomically on insert; the check
// against the loaded user here only exists to fail fast with the stored
// retry time before doing any work.
func (s *PostService) Create(ctx context.Context, userID, imageKey string) (*model.Post, error) {
	imageKey = strings.TrimSpace(imageKey)
	if imageKey == "" {
		return nil, apperror.ValidationFailed("imageKey", "an uploaded image is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !user.CanPostAt(now) {
		return nil, apperror.RateLimited(*user.NextPostAt)
	}

	publishAt, expireAt := timewindow.Plan(now)
	post := &model.Post{
		AuthorID:  userID,
		ImageKey:  imageKey,
		PublishAt: publishAt,
		ExpireAt:  expireAt,
		Visible:   true,
		CreatedAt: now,
	}

	if err := s.posts.CreatePost(ctx, post, timewindow.NextAllowed(now)); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", userID),
		slog.Time("publish_at", post.PublishAt),
	)
	return post, nil
}

// List returns a page of posts plus the cursor for the next page.
//
// ScopeTop is the public feed: published, unexpired, visible posts.
// ScopeUser is one author's archive and also shows their expired posts.
// nextCursor is the publish time of the last row, and is only set when
// the page came back full — a short page means there is nothing further.
func (s *PostService) List(ctx context.Context, scope, userID string, limit int, cursor *time.Time) ([]model.Post, *time.Time, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	opts := repository.PostListOptions{Limit: limit, Cursor: cursor}

	var (
		posts []model.Post
		err   error
	)
	switch scope {
	case ScopeTop:
		posts, err = s.posts.ListPublic(ctx, time.Now(), opts)
	case ScopeUser:
		if userID == "" {
			return nil, nil, apperror.ValidationFailed("userId", "userId is required for the user scope")
		}
		posts, err = s.posts.ListByAuthor(ctx, userID, opts)
	default:
		return nil, nil, apperror.ValidationFailed("scope", "scope must be \"top\" or \"user\"")
	}
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *time.Time
	if len(posts) == limit {
		last := posts[len(posts)-1].PublishAt
		nextCursor = &last
	}
	return posts, nextCursor, nil
}

// Random picks one uniformly random post from the current public feed.
// Returns (nil, nil) when the feed is empty.
func (s *PostService) Random(ctx context.Context) (*model.Post, error) {
	return s.posts.RandomPublic(ctx, time.Now())
}

// Get loads a single post by ID.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}
