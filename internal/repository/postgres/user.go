package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser inserts a new account. ID and CreatedAt are assigned here.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, handle, email, name, image, created_at, next_post_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID,
		user.Handle,
		nullString(user.Email),
		user.Name,
		user.Image,
		user.CreatedAt,
		user.NextPostAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Handle)
		}
		return fmt.Errorf("postgres: inserting user (handle=%s): %w", user.Handle, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = $1`, email)
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("postgres: getting user %v: %w", arg, err)
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
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at`,
		email, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: saving login token: %w", err)
	}
	return nil
}

// TakeLoginToken atomically consumes the stored token hash for email.
func (db *DB) TakeLoginToken(ctx context.Context, email string) (string, time.Time, error) {
	var (
		tokenHash string
		expiresAt time.Time
	)

	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM login_tokens WHERE email = $1
		 RETURNING token_hash, expires_at`,
		email,
	).Scan(&tokenHash, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, apperror.NotFound("login token", email)
		}
		return "", time.Time{}, fmt.Errorf("postgres: taking login token: %w", err)
	}

	return tokenHash, expiresAt, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
