// Package postgres implements the repository interfaces on PostgreSQL.
//
// It mirrors the sqlite backend method for method; only the SQL dialect
// differs ($n placeholders, native booleans, pg error codes). Schema
// management is heavier-weight than sqlite's inline DDL: goose applies the
// embedded migrations in internal/repository/postgres/migrations and
// tracks which have run, so multiple server instances can share one
// database safely.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Side-effect import: registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/silentgallery/server/internal/repository"
	"github.com/silentgallery/server/internal/repository/postgres/migrations"
)

// compile-time check that *DB provides the full storage surface
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB pool connected to Postgres.
type DB struct {
	conn *sql.DB
}

// New connects to the database at dsn and applies pending migrations.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.runMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.conn, ".")
}
