package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// schema is applied by Migrate; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		public_id       UUID NOT NULL UNIQUE,
		email           TEXT NOT NULL,
		full_name       TEXT NOT NULL,
		hashed_password TEXT NOT NULL,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		deleted_at      TIMESTAMPTZ
	)`,
	// at most one live user per email
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_live_idx ON users (lower(email)) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id             BIGSERIAL PRIMARY KEY,
		public_id      UUID NOT NULL UNIQUE,
		user_public_id UUID NOT NULL REFERENCES users (public_id),
		type           TEXT NOT NULL CHECK (type IN ('income', 'expense')),
		category       TEXT NOT NULL,
		amount         DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		description    TEXT NOT NULL DEFAULT '',
		date           TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		deleted_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_owner_date_idx ON transactions (user_public_id, date DESC) WHERE deleted_at IS NULL`,
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open connects with the named database/sql driver ("postgres" or "pgx") and pings
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewRepository(db), nil
}

// Migrate creates tables and indexes that do not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the connection pool
func (r *Repository) Close() error {
	return r.db.Close()
}

// isUniqueViolation recognizes duplicate-key errors from both supported drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
