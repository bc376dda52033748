package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/reviewflow/internal/models"
)

const (
	maxBatchSize   = 25
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// BatchWriter is the part of the DynamoDB client the store needs.
type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

type Store struct {
	client          BatchWriter
	reviewsTable    string
	aggregatesTable string
	backoff         time.Duration
}

func NewStore(client BatchWriter, reviewsTable, aggregatesTable string) *Store {
	return &Store{
		client:          client,
		reviewsTable:    reviewsTable,
		aggregatesTable: aggregatesTable,
		backoff:         initialBackoff,
	}
}

// StoreClassifiedReviews writes one item per review keyed by review_id.
func (s *Store) StoreClassifiedReviews(ctx context.Context, rows []models.ClassifiedReview) error {
	createdAt := time.Now().Unix()

	items := make([]map[string]types.AttributeValue, 0, len(rows))
	for _, row := range rows {
		if row.ReviewID == "" {
			row.ReviewID = models.NewReviewID(row.RawReview)
		}
		item, err := ReviewToDynamoDBItem(row)
		if err != nil {
			return err
		}
		item["created_at"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", createdAt)}
		items = append(items, item)
	}

	if err := s.writeBatches(ctx, s.reviewsTable, items); err != nil {
		return err
	}
	slog.Info("[DynamoDB] Successfully stored classified reviews", slog.Int("count", len(rows)))
	return nil
}

// StoreAggregates writes one item per group keyed by group_key.
func (s *Store) StoreAggregates(ctx context.Context, rows []models.AggregateRow) error {
	items := make([]map[string]types.AttributeValue, 0, len(rows))
	for _, row := range rows {
		item, err := AggregateToDynamoDBItem(row)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	if err := s.writeBatches(ctx, s.aggregatesTable, items); err != nil {
		return err
	}
	slog.Info("[DynamoDB] Successfully stored aggregates", slog.Int("count", len(rows)))
	return nil
}

func ReviewToDynamoDBItem(row models.ClassifiedReview) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to marshal review %s: %w", row.ReviewID, err)
	}
	if row.Date.IsZero() {
		delete(item, "date")
	} else {
		item["date"] = &types.AttributeValueMemberS{Value: row.Date.Format(models.DateLayout)}
	}
	return item, nil
}

func AggregateToDynamoDBItem(row models.AggregateRow) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to marshal aggregate: %w", err)
	}
	item["group_key"] = &types.AttributeValueMemberS{Value: GroupKey(row.Key)}
	return item, nil
}

// GroupKey flattens a group into a single partition key, e.g.
// "app_name=Bank A|rating=5". The empty grouping is "all".
func GroupKey(key []models.GroupValue) string {
	if len(key) == 0 {
		return "all"
	}
	parts := make([]string, len(key))
	for i, gv := range key {
		parts[i] = gv.Field + "=" + gv.Value
	}
	return strings.Join(parts, "|")
}

func (s *Store) writeBatches(ctx context.Context, table string, items []map[string]types.AttributeValue) error {
	for i := 0; i < len(items); i += maxBatchSize {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled", slog.String("table", table))
			return ctx.Err()
		default:
		}

		end := min(i+maxBatchSize, len(items))
		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, item := range items[i:end] {
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.writeBatch(ctx, table, writeRequests); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, table string, writeRequests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: writeRequests},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write to %s: %w", table, err)
	}

	backoff := s.backoff
	for retry := 0; len(out.UnprocessedItems) > 0 && retry < maxRetries; retry++ {
		slog.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.String("table", table),
			slog.Int("retry_attempt", retry+1),
			slog.Int("remaining_items", len(out.UnprocessedItems[table])))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to retry batch write to %s: %w", table, err)
		}
	}

	if remaining := len(out.UnprocessedItems[table]); remaining > 0 {
		return fmt.Errorf("[DynamoDB] %d items were not written to %s after %d retries", remaining, table, maxRetries)
	}
	return nil
}
