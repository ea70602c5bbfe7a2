package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the DynamoDB ledger uses.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// ledgerItem is one applied version in the DynamoDB ledger table.
type ledgerItem struct {
	Version   string `dynamodbav:"version"`
	AppliedAt string `dynamodbav:"applied_at"`
}

// DynamoLedger stores applied versions in a DynamoDB table keyed by version. It
// suits Amazon Keyspaces deployments, where the ledger is kept outside the
// migrated keyspace so schema changes and bookkeeping do not share a table.
type DynamoLedger struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

// NewDynamoLedger returns a ledger stored in table (DefaultTable when empty).
func NewDynamoLedger(client DynamoAPI, table string) *DynamoLedger {
	if table == "" {
		table = DefaultTable
	}
	return &DynamoLedger{client: client, table: table, now: time.Now}
}

// CreateTable creates the ledger table with on-demand billing. With ifNotExists
// an existing table is not an error.
func (l *DynamoLedger) CreateTable(ctx context.Context, ifNotExists bool) error {
	_, err := l.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(l.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("version"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("version"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if ifNotExists && errors.As(err, &inUse) {
		return nil
	}
	return err
}

func (l *DynamoLedger) Applied(ctx context.Context) ([]int64, error) {
	var versions []int64

	paginator := dynamodb.NewScanPaginator(l.client, &dynamodb.ScanInput{
		TableName:      aws.String(l.table),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.table, err)
		}
		var items []ledgerItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal ledger items: %w", err)
		}
		for _, item := range items {
			v, err := ParseVersion(item.Version)
			if err != nil {
				return nil, err
			}
			versions = append(versions, v)
		}
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// Record adds version with a conditional put, so two runners racing on the same
// version cannot both record it.
func (l *DynamoLedger) Record(ctx context.Context, version int64) error {
	item, err := attributevalue.MarshalMap(ledgerItem{
		Version:   FormatVersion(version),
		AppliedAt: l.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal ledger item: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#version)"),
		ExpressionAttributeNames: map[string]string{
			"#version": "version",
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %d", ErrAlreadyApplied, version)
	}
	return err
}

func (l *DynamoLedger) Remove(ctx context.Context, version int64) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"version": &types.AttributeValueMemberS{Value: FormatVersion(version)},
		},
	})
	return err
}
