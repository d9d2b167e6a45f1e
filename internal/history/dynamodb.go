package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// DynamoAPI is the subset of the DynamoDB client the store uses
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// historyItem is one rating point keyed by user (hash) and endTime (range)
type historyItem struct {
	User      string `dynamodbav:"user"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	rating.Point
}

// DynamoStore is a Store backed by a DynamoDB table
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoStore creates a store using the default AWS config
func NewDynamoStore(ctx context.Context, tableName string) (*DynamoStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewDynamoStoreWithClient(dynamodb.NewFromConfig(cfg), tableName), nil
}

// NewDynamoStoreWithClient creates a store over an existing client
func NewDynamoStoreWithClient(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (d *DynamoStore) GetHistory(ctx context.Context, user string) ([]rating.Point, error) {
	var points []rating.Point
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		result, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			KeyConditionExpression: aws.String("#user = :user"),
			ExpressionAttributeNames: map[string]string{
				"#user": "user",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":user": &types.AttributeValueMemberS{Value: user},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: lastEvaluatedKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query history for %s: %w", user, err)
		}

		for _, item := range result.Items {
			var hi historyItem
			if err := attributevalue.UnmarshalMap(item, &hi); err != nil {
				log.Printf("Skipping unreadable history item for %s: %v", user, err)
				continue
			}
			points = append(points, hi.Point)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", user, ErrUserNotFound)
	}
	sortPoints(points)
	return points, nil
}

// PutHistory replaces the user's history: every point is written and
// stored points at timestamps no longer present are deleted
func (d *DynamoStore) PutHistory(ctx context.Context, user string, points []rating.Point) error {
	stored, err := d.GetHistory(ctx, user)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	keep := make(map[int64]bool, len(points))
	requests := make([]types.WriteRequest, 0, len(points)+len(stored))
	for _, p := range points {
		item, err := attributevalue.MarshalMap(historyItem{User: user, UpdatedAt: now, Point: p})
		if err != nil {
			return fmt.Errorf("failed to marshal rating point: %w", err)
		}
		keep[p.Timestamp] = true
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, p := range stored {
		if keep[p.Timestamp] {
			continue
		}
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"user":    &types.AttributeValueMemberS{Value: user},
				"endTime": &types.AttributeValueMemberN{Value: strconv.FormatInt(p.Timestamp, 10)},
			},
		}})
	}
	return d.batchWrite(ctx, requests)
}

// batchWrite sends requests in batches of 25, the DynamoDB limit, retrying
// unprocessed ones with a linear backoff
func (d *DynamoStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	const batchSize = 25
	const maxRetries = 5

	for i := 0; i < len(requests); i += batchSize {
		end := min(i+batchSize, len(requests))
		pending := map[string][]types.WriteRequest{d.tableName: requests[i:end]}

		for retry := 0; len(pending) > 0; retry++ {
			if retry == maxRetries {
				return fmt.Errorf("failed to write %d items to %s after %d retries", len(pending[d.tableName]), d.tableName, maxRetries)
			}
			if retry > 0 {
				backoff := time.Duration(retry) * 500 * time.Millisecond
				log.Printf("Retrying %d unprocessed items in %v", len(pending[d.tableName]), backoff)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
			}

			result, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("failed to batch write to table %s: %w", d.tableName, err)
			}
			pending = result.UnprocessedItems
		}
	}
	return nil
}

func (d *DynamoStore) ListUsers(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.tableName),
			ProjectionExpression: aws.String("#user"),
			ExpressionAttributeNames: map[string]string{
				"#user": "user",
			},
			ExclusiveStartKey: lastEvaluatedKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", d.tableName, err)
		}

		for _, item := range result.Items {
			if v, ok := item["user"].(*types.AttributeValueMemberS); ok {
				seen[v.Value] = true
			}
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}
