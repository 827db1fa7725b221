package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/silentgallery/server/internal/model"
)

// UpsertReaction records one user's reaction to one post, overwriting any
// previous reaction by the same user atomically via the partial unique
// index on (post_id, user_id). RETURNING echoes the stored row, so the
// caller gets the surviving id on the overwrite path.
func (db *DB) UpsertReaction(ctx context.Context, reaction *model.Reaction) error {
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO reactions (id, post_id, user_id, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (post_id, user_id) WHERE user_id IS NOT NULL DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at
		 RETURNING id, created_at`,
		xid.New().String(),
		reaction.PostID,
		nullString(reaction.UserID),
		reaction.Kind,
		time.Now().UTC(),
	).Scan(&reaction.ID, &reaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting reaction (post=%s user=%s): %w",
			reaction.PostID, reaction.UserID, err)
	}

	return nil
}

// ListReactionsByPost returns every reaction row for the post.
func (db *DB) ListReactionsByPost(ctx context.Context, postID string) ([]model.Reaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, post_id, user_id, kind, created_at
		 FROM reactions WHERE post_id = $1`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing reactions for post %s: %w", postID, err)
	}
	defer rows.Close()

	var reactions []model.Reaction
	for rows.Next() {
		var (
			r      model.Reaction
			userID sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.PostID, &userID, &r.Kind, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning reaction row: %w", err)
		}
		r.UserID = userID.String
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating reactions: %w", err)
	}

	return reactions, nil
}

// DeleteReaction removes the caller's own reaction row. Idempotent.
func (db *DB) DeleteReaction(ctx context.Context, postID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM reactions WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting reaction (post=%s user=%s): %w", postID, userID, err)
	}
	return nil
}
