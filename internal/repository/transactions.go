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

const transactionColumns = `public_id, user_public_id, type, category, amount, description, date, created_at, updated_at, deleted_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var deletedAt sql.NullTime
	err := row.Scan(&tx.PublicID, &tx.UserPublicID, &tx.Type, &tx.Category, &tx.Amount,
		&tx.Description, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	tx.Date = tx.Date.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		tx.DeletedAt = &t
	}
	return tx, nil
}

// CreateTransaction inserts a transaction already stamped with its owner
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)`
	_, err := r.db.ExecContext(ctx, query, tx.PublicID, tx.UserPublicID, tx.Type, tx.Category,
		tx.Amount, tx.Description, tx.Date, tx.CreatedAt, tx.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the owner's live transactions by date descending
func (r *Repository) ListTransactions(ctx context.Context, owner uuid.UUID, skip, limit int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_public_id = $1 AND deleted_at IS NULL
		ORDER BY date DESC, created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, owner, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0, limit)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

// GetTransaction fetches one live transaction; ownership is part of the filter
func (r *Repository) GetTransaction(ctx context.Context, publicID, owner uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE public_id = $1 AND user_public_id = $2 AND deleted_at IS NULL`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, publicID, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// SoftDeleteTransaction stamps deleted_at on a live transaction of the owner
func (r *Repository) SoftDeleteTransaction(ctx context.Context, publicID, owner uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE transactions
		SET deleted_at = $1, updated_at = $1
		WHERE public_id = $2 AND user_public_id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, now, publicID, owner)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireOneRow(res)
}

// AggregateBalance sums and counts the owner's live transactions per type
func (r *Repository) AggregateBalance(ctx context.Context, owner uuid.UUID) (models.BalanceTotals, error) {
	query := `
		SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE user_public_id = $1 AND deleted_at IS NULL
		GROUP BY type`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return models.BalanceTotals{}, fmt.Errorf("failed to aggregate balance: %w", err)
	}
	defer rows.Close()

	var totals models.BalanceTotals
	for rows.Next() {
		var (
			typ   models.TransactionType
			sum   float64
			count int
		)
		if err := rows.Scan(&typ, &sum, &count); err != nil {
			return models.BalanceTotals{}, fmt.Errorf("failed to scan balance: %w", err)
		}
		totals.Add(typ, sum, count)
	}
	if err := rows.Err(); err != nil {
		return models.BalanceTotals{}, fmt.Errorf("failed to aggregate balance: %w", err)
	}
	return totals, nil
}
