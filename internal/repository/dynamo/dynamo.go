// Package dynamo stores users and transactions in two DynamoDB tables.
//
// The users table is keyed by "pk" and holds two item kinds: USER#<public id> carrying the
// account, and EMAIL#<lower email> claiming an address for one live user. Both are written in a
// single TransactWriteItems call so the claim is the uniqueness constraint.
//
// The transactions table is keyed by user_public_id/public_id, with a local secondary index on
// date_key for newest-first listing.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	dateIndex       = "date-index"
	sortTimeLayout  = "2006-01-02T15:04:05.000000000Z"
	tableWaitLimit  = 2 * time.Minute
	conditionFailed = "ConditionalCheckFailed"
)

// API is the subset of the DynamoDB client the store needs
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Options holds the connection settings
type Options struct {
	Region            string
	Endpoint          string // e.g. http://localhost:8000 for DynamoDB Local
	UsersTable        string
	TransactionsTable string
}

// Store implements the service store on DynamoDB
type Store struct {
	api          API
	users        string
	transactions string
	now          func() time.Time
}

// New loads the default AWS configuration and builds a client
func New(ctx context.Context, opts Options) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewWithAPI(client, opts.UsersTable, opts.TransactionsTable), nil
}

// NewWithAPI wraps an existing client
func NewWithAPI(api API, usersTable, transactionsTable string) *Store {
	return &Store{
		api:          api,
		users:        usersTable,
		transactions: transactionsTable,
		now:          time.Now,
	}
}

// Ping checks that the users table is reachable
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.users)})
	if err != nil {
		return fmt.Errorf("error checking table: %w", err)
	}
	return nil
}

// Close is a no-op, the client holds no connection
func (s *Store) Close() error {
	return nil
}

// EnsureTables creates both tables when missing and waits until they are active
func (s *Store) EnsureTables(ctx context.Context) error {
	tables := []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(s.users),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(s.transactions),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("user_public_id"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("public_id"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("date_key"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("user_public_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("public_id"), KeyType: types.KeyTypeRange},
			},
			LocalSecondaryIndexes: []types.LocalSecondaryIndex{{
				IndexName: aws.String(dateIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("user_public_id"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("date_key"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			}},
		},
	}

	waiter := dynamodb.NewTableExistsWaiter(s.api)
	for _, input := range tables {
		_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error checking table %s: %w", aws.ToString(input.TableName), err)
		}
		if _, err := s.api.CreateTable(ctx, input); err != nil {
			return fmt.Errorf("failed to create table %s: %w", aws.ToString(input.TableName), err)
		}
		err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName}, tableWaitLimit)
		if err != nil {
			return fmt.Errorf("table %s did not become active: %w", aws.ToString(input.TableName), err)
		}
	}
	return nil
}

// isConditionFailure recognizes a failed condition on a single write or inside a transaction
func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == conditionFailed {
				return true
			}
		}
	}
	return false
}

func sortKey(t time.Time) string {
	return t.UTC().Format(sortTimeLayout)
}

func timeValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

func stringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}
