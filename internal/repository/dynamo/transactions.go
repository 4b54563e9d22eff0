package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type transactionItem struct {
	UserPublicID string     `dynamodbav:"user_public_id"`
	PublicID     string     `dynamodbav:"public_id"`
	DateKey      string     `dynamodbav:"date_key"`
	Type         string     `dynamodbav:"type"`
	Category     string     `dynamodbav:"category"`
	Amount       float64    `dynamodbav:"amount"`
	Description  string     `dynamodbav:"description"`
	Date         time.Time  `dynamodbav:"date"`
	CreatedAt    time.Time  `dynamodbav:"created_at"`
	UpdatedAt    time.Time  `dynamodbav:"updated_at"`
	DeletedAt    *time.Time `dynamodbav:"deleted_at,omitempty"`
}

func transactionKey(publicID, owner uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_public_id": stringValue(owner.String()),
		"public_id":      stringValue(publicID.String()),
	}
}

func (it *transactionItem) model() (*models.Transaction, error) {
	id, err := uuid.Parse(it.PublicID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", it.PublicID, err)
	}
	owner, err := uuid.Parse(it.UserPublicID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", it.UserPublicID, err)
	}
	return &models.Transaction{
		PublicID:     id,
		UserPublicID: owner,
		Type:         models.TransactionType(it.Type),
		Category:     models.Category(it.Category),
		Amount:       it.Amount,
		Description:  it.Description,
		Date:         it.Date,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
		DeletedAt:    it.DeletedAt,
	}, nil
}

// CreateTransaction puts a new transaction under its owner's partition
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	item, err := attributevalue.MarshalMap(transactionItem{
		UserPublicID: tx.UserPublicID.String(),
		PublicID:     tx.PublicID.String(),
		// newest first on the index: date, then insert time
		DateKey:     sortKey(tx.Date) + "#" + sortKey(tx.CreatedAt),
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		Amount:      tx.Amount,
		Description: tx.Description,
		Date:        tx.Date,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.transactions),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(public_id)"),
	})
	if isConditionFailure(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("PutItem operation failed: %w", err)
	}
	return nil
}

// eachLive walks the owner's live transactions newest first until fn returns false
func (s *Store) eachLive(ctx context.Context, owner uuid.UUID, fn func(*transactionItem) bool) error {
	paginator := dynamodb.NewQueryPaginator(s.api, &dynamodb.QueryInput{
		TableName:              aws.String(s.transactions),
		IndexName:              aws.String(dateIndex),
		KeyConditionExpression: aws.String("user_public_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": stringValue(owner.String()),
		},
		ScanIndexForward: aws.Bool(false),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("Query operation failed: %w", err)
		}
		for _, raw := range page.Items {
			var item transactionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return fmt.Errorf("failed to unmarshal transaction: %w", err)
			}
			if item.DeletedAt != nil {
				continue
			}
			if !fn(&item) {
				return nil
			}
		}
	}
	return nil
}

// ListTransactions pages through the date index, skipping soft-deleted items
func (s *Store) ListTransactions(ctx context.Context, owner uuid.UUID, skip, limit int) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, limit)
	var convErr error
	seen := 0
	err := s.eachLive(ctx, owner, func(item *transactionItem) bool {
		seen++
		if seen <= skip {
			return true
		}
		tx, err := item.model()
		if err != nil {
			convErr = err
			return false
		}
		out = append(out, *tx)
		return len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

// GetTransaction reads by owner and id; the owner is part of the key
func (s *Store) GetTransaction(ctx context.Context, publicID, owner uuid.UUID) (*models.Transaction, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.transactions),
		Key:            transactionKey(publicID, owner),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem operation failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.ErrNotFound
	}
	var item transactionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	if item.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	return item.model()
}

// SoftDeleteTransaction stamps deleted_at if the item exists and is still live
func (s *Store) SoftDeleteTransaction(ctx context.Context, publicID, owner uuid.UUID) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.transactions),
		Key:                 transactionKey(publicID, owner),
		UpdateExpression:    aws.String("SET deleted_at = :now, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(public_id) AND attribute_not_exists(deleted_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": timeValue(s.now()),
		},
	})
	if isConditionFailure(err) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("UpdateItem operation failed: %w", err)
	}
	return nil
}

// AggregateBalance sums the owner's live transactions client-side
func (s *Store) AggregateBalance(ctx context.Context, owner uuid.UUID) (models.BalanceTotals, error) {
	var totals models.BalanceTotals
	err := s.eachLive(ctx, owner, func(item *transactionItem) bool {
		totals.Add(models.TransactionType(item.Type), item.Amount, 1)
		return true
	})
	if err != nil {
		return models.BalanceTotals{}, err
	}
	return totals, nil
}
