package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
)

const postColumns = `id, author_id, image_key, publish_at, expire_at, visible, created_at`

// CreatePost inserts a post and advances the author's cooldown in one
// transaction.
//
// The cooldown check is a conditional UPDATE, not a read-then-write: the
// author row only changes when its current next_post_at is NULL or at or
// before the submission time. Two requests racing each other serialize on
// that row — the loser matches zero rows, the post is never inserted, and
// the caller gets a rate-limited error carrying the winning cooldown so it
// can show the remaining wait.
//
// The caller fills PublishAt, ExpireAt, Visible and CreatedAt (submission
// time); the repository assigns the ID.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, nextPostAt time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning post transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET next_post_at = ?
		 WHERE id = ? AND (next_post_at IS NULL OR next_post_at <= ?)`,
		nextPostAt.UTC(), post.AuthorID, post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: advancing cooldown for user %s: %w", post.AuthorID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		// Either the user is gone or their cooldown is still running —
		// read the row (inside the transaction) to tell the two apart.
		var next sql.NullTime
		err := tx.QueryRowContext(ctx,
			`SELECT next_post_at FROM users WHERE id = ?`, post.AuthorID,
		).Scan(&next)
		if err == sql.ErrNoRows {
			return apperror.NotFound("user", post.AuthorID)
		}
		if err != nil {
			return fmt.Errorf("sqlite: reading cooldown for user %s: %w", post.AuthorID, err)
		}
		return apperror.RateLimited(next.Time)
	}

	post.ID = xid.New().String()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.ImageKey,
		post.PublishAt.UTC(),
		post.ExpireAt.UTC(),
		post.Visible,
		post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a single post by its ID.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.AuthorID, &p.ImageKey, &p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return &p, nil
}

// ListPublic returns the public feed page at now: published, unexpired,
// visible posts, newest published first.
func (db *DB) ListPublic(ctx context.Context, now time.Time, opts repository.PostListOptions) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE publish_at <= ? AND expire_at > ? AND visible = TRUE`
	args := []any{now.UTC(), now.UTC()}

	if opts.Cursor != nil {
		query += ` AND publish_at <= ?`
		args = append(args, opts.Cursor.UTC())
	}

	query += ` ORDER BY publish_at DESC LIMIT ?`
	args = append(args, clampLimit(opts.Limit))

	return db.listPosts(ctx, query, args...)
}

// ListByAuthor returns all of one author's visible posts — no time-window
// filtering, so the author keeps seeing their expired posts.
func (db *DB) ListByAuthor(ctx context.Context, authorID string, opts repository.PostListOptions) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE author_id = ? AND visible = TRUE`
	args := []any{authorID}

	if opts.Cursor != nil {
		query += ` AND publish_at <= ?`
		args = append(args, opts.Cursor.UTC())
	}

	query += ` ORDER BY publish_at DESC LIMIT ?`
	args = append(args, clampLimit(opts.Limit))

	return db.listPosts(ctx, query, args...)
}

// RandomPublic picks one uniformly random post from the public-feed set.
// Returns (nil, nil) when the set is empty — an empty spotlight is not an
// error.
func (db *DB) RandomPublic(ctx context.Context, now time.Time) (*model.Post, error) {
	var p model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE publish_at <= ? AND expire_at > ? AND visible = TRUE
		 ORDER BY RANDOM() LIMIT 1`,
		now.UTC(), now.UTC(),
	).Scan(&p.ID, &p.AuthorID, &p.ImageKey, &p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: picking random post: %w", err)
	}

	return &p, nil
}

func (db *DB) listPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, 20)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.ImageKey,
			&p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
