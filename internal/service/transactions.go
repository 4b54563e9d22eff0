package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/google/uuid"
)

const msgTransactionNotFound = "Transaction not found"

// CreateTransactionInput is the transaction creation payload
type CreateTransactionInput struct {
	Type        models.TransactionType `json:"type" validate:"required,oneof=income expense"`
	Category    models.Category        `json:"category" validate:"required,oneof=salary freelance investment other_income housing transportation food utilities healthcare entertainment shopping other_expense"`
	Amount      float64                `json:"amount" validate:"gt=0,lte=1e15"`
	Description string                 `json:"description" validate:"max=500"`
	Date        *time.Time             `json:"date"`
}

// Statement is every live transaction of a user together with the balance
type Statement struct {
	User         models.UserResponse
	GeneratedAt  time.Time
	Balance      models.Balance
	Transactions []models.Transaction
}

// CreateTransaction records a transaction for the authenticated user
func (s *Service) CreateTransaction(ctx context.Context, user *models.User, in CreateTransactionInput) (*models.Transaction, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}

	tx := &models.Transaction{
		PublicID:     uuid.New(),
		UserPublicID: user.PublicID,
		Type:         in.Type,
		Category:     in.Category,
		Amount:       in.Amount,
		Description:  in.Description,
		Date:         date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.txs.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.log.Debugf("Transaction %s created for user %s", tx.PublicID, user.PublicID)
	return tx, nil
}

// ListTransactions returns one page of the user's transactions, newest date first
func (s *Service) ListTransactions(ctx context.Context, user *models.User, skip, limit int) ([]models.Transaction, error) {
	var fields []apperr.FieldError
	if skip < 0 {
		fields = append(fields, apperr.FieldError{Field: "skip", Message: "must be greater than or equal to 0"})
	}
	if limit < 1 || limit > MaxPageLimit {
		fields = append(fields, apperr.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxPageLimit)})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}

	return s.txs.ListTransactions(ctx, user.PublicID, skip, limit)
}

// GetTransaction returns a single transaction owned by the user
func (s *Service) GetTransaction(ctx context.Context, user *models.User, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, id, user.PublicID)
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

// DeleteTransaction soft deletes a transaction owned by the user
func (s *Service) DeleteTransaction(ctx context.Context, user *models.User, id uuid.UUID) error {
	if err := s.txs.SoftDeleteTransaction(ctx, id, user.PublicID); err != nil {
		return notFound(err)
	}
	s.log.Debugf("Transaction %s deleted for user %s", id, user.PublicID)
	return nil
}

// Balance aggregates the user's live transactions
func (s *Service) Balance(ctx context.Context, user *models.User) (models.Balance, error) {
	totals, err := s.txs.AggregateBalance(ctx, user.PublicID)
	if err != nil {
		return models.Balance{}, err
	}
	return models.NewBalance(totals), nil
}

// Statement collects every live transaction of the user for export
func (s *Service) Statement(ctx context.Context, user *models.User) (*Statement, error) {
	balance, err := s.Balance(ctx, user)
	if err != nil {
		return nil, err
	}

	var all []models.Transaction
	for skip := 0; ; skip += MaxPageLimit {
		page, err := s.txs.ListTransactions(ctx, user.PublicID, skip, MaxPageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < MaxPageLimit {
			break
		}
	}

	return &Statement{
		User:         user.Response(),
		GeneratedAt:  s.now().UTC(),
		Balance:      balance,
		Transactions: all,
	}, nil
}

// notFound hides the store's reason behind the generic transaction message
func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(msgTransactionNotFound, nil)
	}
	return err
}
