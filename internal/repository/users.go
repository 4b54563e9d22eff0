package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/google/uuid"
)

const userColumns = `public_id, email, full_name, hashed_password, is_active, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var deletedAt sql.NullTime
	err := row.Scan(&user.PublicID, &user.Email, &user.FullName, &user.HashedPassword,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		user.DeletedAt = &t
	}
	return user, nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`
	_, err := r.db.ExecContext(ctx, query, user.PublicID, user.Email, user.FullName,
		user.HashedPassword, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindActiveUserByEmail retrieves a live user by email
func (r *Repository) FindActiveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return r.findUser(ctx, query, email)
}

// FindActiveUserByPublicID retrieves a live user by public id
func (r *Repository) FindActiveUserByPublicID(ctx context.Context, publicID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE public_id = $1 AND deleted_at IS NULL`
	return r.findUser(ctx, query, publicID)
}

func (r *Repository) findUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// SoftDeleteUser marks a live user as deleted, releasing the email
func (r *Repository) SoftDeleteUser(ctx context.Context, publicID uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE users
		SET deleted_at = $1, updated_at = $1
		WHERE public_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, now, publicID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
