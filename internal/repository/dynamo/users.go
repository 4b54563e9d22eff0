package dynamo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type userItem struct {
	PK             string     `dynamodbav:"pk"`
	PublicID       string     `dynamodbav:"public_id"`
	Email          string     `dynamodbav:"email"`
	FullName       string     `dynamodbav:"full_name"`
	HashedPassword string     `dynamodbav:"hashed_password"`
	IsActive       bool       `dynamodbav:"is_active"`
	CreatedAt      time.Time  `dynamodbav:"created_at"`
	UpdatedAt      time.Time  `dynamodbav:"updated_at"`
	DeletedAt      *time.Time `dynamodbav:"deleted_at,omitempty"`
}

type emailClaim struct {
	PK       string `dynamodbav:"pk"`
	PublicID string `dynamodbav:"public_id"`
}

func userKey(id uuid.UUID) string {
	return "USER#" + id.String()
}

func emailKey(email string) string {
	return "EMAIL#" + strings.ToLower(email)
}

func (it *userItem) model() (*models.User, error) {
	id, err := uuid.Parse(it.PublicID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", it.PublicID, err)
	}
	return &models.User{
		PublicID:       id,
		Email:          it.Email,
		FullName:       it.FullName,
		HashedPassword: it.HashedPassword,
		IsActive:       it.IsActive,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
		DeletedAt:      it.DeletedAt,
	}, nil
}

// CreateUser writes the user and its email claim atomically
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(userItem{
		PK:             userKey(user.PublicID),
		PublicID:       user.PublicID.String(),
		Email:          user.Email,
		FullName:       user.FullName,
		HashedPassword: user.HashedPassword,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	claim, err := attributevalue.MarshalMap(emailClaim{PK: emailKey(user.Email), PublicID: user.PublicID.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal email claim: %w", err)
	}

	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.users),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.users),
				Item:                claim,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			}},
		},
	})
	if isConditionFailure(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindActiveUserByEmail resolves the email claim, then loads the user
func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.users),
		Key:            map[string]types.AttributeValue{"pk": stringValue(emailKey(email))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find email claim: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.ErrNotFound
	}
	var claim emailClaim
	if err := attributevalue.UnmarshalMap(out.Item, &claim); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email claim: %w", err)
	}
	id, err := uuid.Parse(claim.PublicID)
	if err != nil {
		return nil, fmt.Errorf("invalid email claim %q: %w", claim.PublicID, err)
	}
	return s.FindActiveUserByPublicID(ctx, id)
}

// FindActiveUserByPublicID loads a user unless it was soft-deleted
func (s *Store) FindActiveUserByPublicID(ctx context.Context, publicID uuid.UUID) (*models.User, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.users),
		Key:            map[string]types.AttributeValue{"pk": stringValue(userKey(publicID))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.ErrNotFound
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if item.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	return item.model()
}

// SoftDeleteUser stamps deleted_at and drops the email claim in one transaction
func (s *Store) SoftDeleteUser(ctx context.Context, publicID uuid.UUID) error {
	user, err := s.FindActiveUserByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	now := s.now()
	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(s.users),
				Key:                 map[string]types.AttributeValue{"pk": stringValue(userKey(publicID))},
				UpdateExpression:    aws.String("SET deleted_at = :now, updated_at = :now"),
				ConditionExpression: aws.String("attribute_exists(pk) AND attribute_not_exists(deleted_at)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": timeValue(now),
				},
			}},
			{Delete: &types.Delete{
				TableName:           aws.String(s.users),
				Key:                 map[string]types.AttributeValue{"pk": stringValue(emailKey(user.Email))},
				ConditionExpression: aws.String("public_id = :id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": stringValue(publicID.String()),
				},
			}},
		},
	})
	if isConditionFailure(err) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
