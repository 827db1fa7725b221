package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
)

// CreateUser inserts a new account. ID and CreatedAt are assigned here.
//
// Handle uniqueness is enforced by the schema, not by a retry loop: the
// generator's collision odds are small enough that the rare duplicate is
// allowed to surface as a conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	var next any
	if user.NextPostAt != nil {
		next = user.NextPostAt.UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, handle, email, name, image, created_at, next_post_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Handle,
		nullString(user.Email),
		user.Name,
		user.Image,
		user.CreatedAt,
		next,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.Handle)
		}
		return fmt.Errorf("sqlite: inserting user (handle=%s): %w", user.Handle, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
		next  sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, handle, email, name, image, created_at, next_post_at
		 FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Handle, &email, &u.Name, &u.Image, &u.CreatedAt, &next)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user %v: %w", arg, err)
	}

	u.Email = email.String
	if next.Valid {
		t := next.Time
		u.NextPostAt = &t
	}

	return &u, nil
}

// SaveLoginToken stores (or replaces) the magic-link token hash for email.
func (db *DB) SaveLoginToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO login_tokens (email, token_hash, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at`,
		email, tokenHash, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving login token: %w", err)
	}
	return nil
}

// TakeLoginToken consumes the stored token hash for email in one
// statement. DELETE ... RETURNING makes the take atomic — a token can
// never be verified twice.
func (db *DB) TakeLoginToken(ctx context.Context, email string) (string, time.Time, error) {
	var (
		tokenHash string
		expiresAt time.Time
	)

	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM login_tokens WHERE email = ?
		 RETURNING token_hash, expires_at`,
		email,
	).Scan(&tokenHash, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", time.Time{}, apperror.NotFound("login token", email)
		}
		return "", time.Time{}, fmt.Errorf("sqlite: taking login token: %w", err)
	}

	return tokenHash, expiresAt, nil
}
