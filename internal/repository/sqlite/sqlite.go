// Package sqlite implements the repository interfaces on SQLite.
//
// This is the default backend: a single-file, pure-Go database
// (modernc.org/sqlite — no CGo, cross-compiles anywhere Go does), which is
// plenty for a single-server deployment. The Postgres backend in
// internal/repository/postgres implements the same interfaces for
// multi-instance deployments; the composition root chooses between them.
//
// Every timestamp is bound in UTC, on writes and query parameters alike.
// The driver stores time.Time as offset-bearing text and SQLite compares
// it lexically, so mixing offsets in one column would make the window
// predicates (publish_at <= now, expire_at > now) mis-evaluate across a
// DST transition or a TZ-changed redeploy.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/silentgallery/server/internal/repository"
)

// compile-time check that *DB provides the full storage surface
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and brings the
// schema up to date. Use ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — without it the
	// whole file locks on every post or reaction.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// SQLite ships with foreign keys off; posts and reactions reference
	// users, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			handle       TEXT NOT NULL UNIQUE,
			email        TEXT UNIQUE,
			name         TEXT NOT NULL DEFAULT '',
			image        TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL,
			next_post_at DATETIME
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			author_id  TEXT NOT NULL REFERENCES users(id),
			image_key  TEXT NOT NULL,
			publish_at DATETIME NOT NULL,
			expire_at  DATETIME NOT NULL,
			visible    BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_publish_at ON posts(publish_at);
		CREATE INDEX IF NOT EXISTS idx_posts_author_publish ON posts(author_id, publish_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// The partial unique index is what makes the reaction upsert atomic:
	// one row per (post, user) for rows that carry a user, while NULL
	// user_id rows (legacy/seeded data) stay unconstrained.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reactions (
			id         TEXT PRIMARY KEY,
			post_id    TEXT NOT NULL REFERENCES posts(id),
			user_id    TEXT REFERENCES users(id),
			kind       TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_post_user
			ON reactions(post_id, user_id) WHERE user_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_reactions_post_created
			ON reactions(post_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating reactions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS login_tokens (
			email      TEXT PRIMARY KEY,
			token_hash TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating login_tokens table: %w", err)
	}

	return nil
}

// nullString maps "" to NULL so optional unique columns (email, user_id)
// don't collide on the empty string.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
