// Package repository defines the typed storage interfaces the rest of the
// application programs against. Each entity gets explicit method
// signatures; no query-builder objects leak out of the storage layer.
//
// Two backends implement Store: internal/repository/sqlite (the default)
// and internal/repository/postgres. The composition root picks one at
// startup from configuration and injects it everywhere — there is no
// package-level store handle.
package repository

import (
	"context"
	"io"
	"time"

	"github.com/silentgallery/server/internal/model"
)

// PostListOptions controls feed and archive pagination.
//
// Pagination is cursor-based on publish_at: Cursor, when set, restricts
// the page to rows with publish_at <= cursor. The cursor a caller passes
// is the publish_at of the last row of the previous page. Because
// publish_at is not unique, two posts sharing an exact timestamp can
// repeat across a page boundary; that is an accepted property of the
// contract, not a bug to paper over here.
type PostListOptions struct {
	Limit  int
	Cursor *time.Time
}

// UserRepository persists accounts and their single-use login tokens.
type UserRepository interface {
	// CreateUser inserts a new account. The repository assigns ID and
	// CreatedAt. A duplicate handle or email yields a conflict error.
	CreateUser(ctx context.Context, user *model.User) error

	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// SaveLoginToken stores the bcrypt hash of a magic-link token for
	// email, replacing any previous one.
	SaveLoginToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error

	// TakeLoginToken atomically removes and returns the stored token hash
	// for email. A second take returns a not-found error — tokens are
	// single-use.
	TakeLoginToken(ctx context.Context, email string) (tokenHash string, expiresAt time.Time, err error)
}

// PostRepository persists posts and answers the visibility queries.
type PostRepository interface {
	// CreatePost inserts post and advances the author's next_post_at to
	// nextPostAt in the same transaction. The cooldown is enforced here,
	// atomically: the author row is updated only if its current
	// next_post_at is NULL or <= post.CreatedAt. If the guard fails the
	// post is not inserted and a rate-limited error carrying the
	// author's current next_post_at is returned, so two racing requests
	// can never both post. The repository assigns post.ID.
	CreatePost(ctx context.Context, post *model.Post, nextPostAt time.Time) error

	GetPostByID(ctx context.Context, id string) (*model.Post, error)

	// ListPublic returns the public feed at now: published, unexpired,
	// visible posts ordered by publish_at descending.
	ListPublic(ctx context.Context, now time.Time, opts PostListOptions) ([]model.Post, error)

	// ListByAuthor returns all of one author's visible posts, expired
	// ones included, same ordering and cursor semantics as ListPublic.
	ListByAuthor(ctx context.Context, authorID string, opts PostListOptions) ([]model.Post, error)

	// RandomPublic picks one uniformly random post from the public feed
	// set at now. Returns (nil, nil) when the set is empty.
	RandomPublic(ctx context.Context, now time.Time) (*model.Post, error)
}

// ReactionRepository persists reactions with at-most-one-per-(post,user)
// semantics.
type ReactionRepository interface {
	// UpsertReaction inserts the reaction, or — if the user already
	// reacted to the post — overwrites kind and created_at in place.
	// Atomic: backed by a unique index, not read-then-write. On return,
	// reaction.ID and reaction.CreatedAt reflect the stored row; on the
	// overwrite path the original id survives.
	UpsertReaction(ctx context.Context, reaction *model.Reaction) error

	ListReactionsByPost(ctx context.Context, postID string) ([]model.Reaction, error)

	// DeleteReaction removes the row for (postID, userID). Deleting a
	// reaction that does not exist is not an error.
	DeleteReaction(ctx context.Context, postID, userID string) error
}

// Store is the full storage surface a backend must provide.
type Store interface {
	UserRepository
	PostRepository
	ReactionRepository
	io.Closer
}
