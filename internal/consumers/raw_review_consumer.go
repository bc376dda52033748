package consumers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/reviewflow/internal/clients/kafka_client"
	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/utils"
)

const publishRetries = 3

type Classifier interface {
	Run(ctx context.Context, reviews []models.RawReview) ([]models.ClassifiedReview, error)
}

type Publisher interface {
	PublishBatch(ctx context.Context, topic string, messages []kafka_client.Message) error
}

type Committer interface {
	Commit(msgs []*kafka.Message) error
}

type MessageSource interface {
	Next() (*kafka.Message, error)
}

// ReviewStore optionally persists each classified batch next to publishing it.
type ReviewStore interface {
	StoreClassifiedReviews(ctx context.Context, rows []models.ClassifiedReview) error
}

type RawReviewConsumerOptions struct {
	Topic        string // classified reviews are published here
	BatchSize    int
	BatchTimeout time.Duration
	RetryDelay   time.Duration
}

// RawReviewConsumer reads JSON arrays of raw reviews, classifies them in
// batches and publishes one message per classified review. Offsets are
// committed only after the batch they belong to was published.
type RawReviewConsumer struct {
	classifier Classifier
	publisher  Publisher
	committer  Committer
	store      ReviewStore
	opts       RawReviewConsumerOptions

	reviews  *utils.BatchBuffer[models.RawReview]
	messages *utils.BatchBuffer[*kafka.Message]
}

func NewRawReviewConsumer(classifier Classifier, publisher Publisher, committer Committer, store ReviewStore, opts RawReviewConsumerOptions) *RawReviewConsumer {
	if opts.Topic == "" {
		opts.Topic = kafka_client.KAFKA_TOPIC_CLASSIFIED_REVIEWS
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = kafka_client.RETRY_DELAY
	}

	return &RawReviewConsumer{
		classifier: classifier,
		publisher:  publisher,
		committer:  committer,
		store:      store,
		opts:       opts,
		reviews:    utils.NewBatchBuffer[models.RawReview](opts.BatchSize),
		messages:   utils.NewBatchBuffer[*kafka.Message](opts.BatchSize),
	}
}

// Start consumes until ctx is cancelled, flushing full batches immediately and
// partial ones every BatchTimeout. A failed flush stops the consumer so the
// uncommitted messages are redelivered to the next one.
func (c *RawReviewConsumer) Start(ctx context.Context, source MessageSource) error {
	slog.Info("[RawReviewConsumer] Listening for messages...")

	ticker := time.NewTicker(c.opts.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[RawReviewConsumer] Stopping consumer...")
			// offsets of an unflushed batch stay uncommitted and are redelivered
			return nil
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				return err
			}
		default:
			msg, err := source.Next()
			if err != nil {
				utils.HandleConsumerError(err)
				continue
			}
			if msg == nil {
				continue
			}
			if !c.Handle(msg) {
				continue
			}
			if err := c.Flush(ctx); err != nil {
				return err
			}
		}
	}
}

// Handle buffers the reviews carried by msg and reports whether a flush is due.
// Undecodable messages are buffered without reviews so their offset is still
// committed with the next batch.
func (c *RawReviewConsumer) Handle(msg *kafka.Message) bool {
	var reviews []models.RawReview
	if err := utils.DeserializeFromJSON(msg.Value, &reviews); err != nil {
		slog.Warn("[RawReviewConsumer] Skipping malformed message",
			slog.String("partition", fmt.Sprintf("%d", msg.TopicPartition.Partition)),
			slog.String("offset", fmt.Sprintf("%d", msg.TopicPartition.Offset)))
		reviews = nil
	}

	c.messages.Add(msg)
	return c.reviews.Add(reviews...)
}

// Flush classifies and publishes the buffered reviews, then commits their
// offsets. On failure nothing is committed.
func (c *RawReviewConsumer) Flush(ctx context.Context) error {
	if !c.messages.HasData() {
		return nil
	}
	c.reviews.LogBatchProcessing(c.opts.Topic)

	msgs := c.messages.GetAndClear()
	reviews := c.reviews.GetAndClear()

	if len(reviews) > 0 {
		rows, err := c.classifier.Run(ctx, reviews)
		if err != nil {
			return fmt.Errorf("[RawReviewConsumer] classification failed: %w", err)
		}
		if err := c.publish(ctx, rows); err != nil {
			return err
		}
		if c.store != nil {
			if err := c.store.StoreClassifiedReviews(ctx, rows); err != nil {
				slog.Warn("[RawReviewConsumer] Failed to store batch",
					slog.String("error", err.Error()))
			}
		}
	}

	if err := c.committer.Commit(msgs); err != nil {
		return fmt.Errorf("[RawReviewConsumer] failed to commit offsets: %w", err)
	}
	return nil
}

func (c *RawReviewConsumer) publish(ctx context.Context, rows []models.ClassifiedReview) error {
	messages := make([]kafka_client.Message, 0, len(rows))
	for _, row := range rows {
		value, err := utils.SerializeToJSON(row)
		if err != nil {
			return fmt.Errorf("[RawReviewConsumer] failed to encode review %s: %w", row.ReviewID, err)
		}
		messages = append(messages, kafka_client.Message{Key: []byte(row.ReviewID), Value: value})
	}

	var err error
	for i := 0; i < publishRetries; i++ {
		if err = c.publisher.PublishBatch(ctx, c.opts.Topic, messages); err == nil {
			return nil
		}
		slog.Warn("[RawReviewConsumer] Batch publishing failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.RetryDelay):
		}
	}
	return fmt.Errorf("[RawReviewConsumer] failed to publish batch after %d attempts: %w", publishRetries, err)
}
