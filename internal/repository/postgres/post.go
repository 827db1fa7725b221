package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
)

const postColumns = `id, author_id, image_key, publish_at, expire_at, visible, created_at`

// CreatePost inserts a post and advances the author's cooldown in one
// transaction, with the same conditional-update guard as the sqlite
// backend — see the interface comment in internal/repository.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, nextPostAt time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning post transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET next_post_at = $1
		 WHERE id = $2 AND (next_post_at IS NULL OR next_post_at <= $3)`,
		nextPostAt, post.AuthorID, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: advancing cooldown for user %s: %w", post.AuthorID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		var next sql.NullTime
		err := tx.QueryRowContext(ctx,
			`SELECT next_post_at FROM users WHERE id = $1`, post.AuthorID,
		).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", post.AuthorID)
		}
		if err != nil {
			return fmt.Errorf("postgres: reading cooldown for user %s: %w", post.AuthorID, err)
		}
		return apperror.RateLimited(next.Time)
	}

	post.ID = xid.New().String()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID,
		post.AuthorID,
		post.ImageKey,
		post.PublishAt,
		post.ExpireAt,
		post.Visible,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a single post by its ID.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.AuthorID, &p.ImageKey, &p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("postgres: getting post %s: %w", id, err)
	}

	return &p, nil
}

// ListPublic returns the public feed page at now.
func (db *DB) ListPublic(ctx context.Context, now time.Time, opts repository.PostListOptions) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE publish_at <= $1 AND expire_at > $1 AND visible = TRUE`
	args := []any{now}

	if opts.Cursor != nil {
		query += fmt.Sprintf(` AND publish_at <= $%d`, len(args)+1)
		args = append(args, *opts.Cursor)
	}

	query += fmt.Sprintf(` ORDER BY publish_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, clampLimit(opts.Limit))

	return db.listPosts(ctx, query, args...)
}

// ListByAuthor returns all of one author's visible posts, expired included.
func (db *DB) ListByAuthor(ctx context.Context, authorID string, opts repository.PostListOptions) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE author_id = $1 AND visible = TRUE`
	args := []any{authorID}

	if opts.Cursor != nil {
		query += fmt.Sprintf(` AND publish_at <= $%d`, len(args)+1)
		args = append(args, *opts.Cursor)
	}

	query += fmt.Sprintf(` ORDER BY publish_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, clampLimit(opts.Limit))

	return db.listPosts(ctx, query, args...)
}

// RandomPublic picks one uniformly random post from the public-feed set.
func (db *DB) RandomPublic(ctx context.Context, now time.Time) (*model.Post, error) {
	var p model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE publish_at <= $1 AND expire_at > $1 AND visible = TRUE
		 ORDER BY RANDOM() LIMIT 1`,
		now,
	).Scan(&p.ID, &p.AuthorID, &p.ImageKey, &p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: picking random post: %w", err)
	}

	return &p, nil
}

func (db *DB) listPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, 20)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.ImageKey,
			&p.PublishAt, &p.ExpireAt, &p.Visible, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating posts: %w", err)
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
