// Command producer loads raw reviews from a CSV file and publishes them to the
// raw review topic in batches for the streaming classifier.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/reviewflow/config"
	"github.com/spacesedan/reviewflow/internal/clients/kafka_client"
	"github.com/spacesedan/reviewflow/internal/logging"
	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/tabular"
	"github.com/spacesedan/reviewflow/internal/utils"
)

func main() {
	config.LoadEnv(os.Getenv("APP_ENV"))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg == nil {
		return
	}

	if err := logging.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("[Producer] Run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Input == "" {
		return &models.ConfigurationError{Setting: "input", Value: "", Reason: "an input CSV is required"}
	}
	if cfg.BatchSize <= 0 {
		return &models.ConfigurationError{Setting: "batch_size", Value: fmt.Sprint(cfg.BatchSize), Reason: "must be positive"}
	}

	f, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("[Producer] failed to open %s: %w", cfg.Input, err)
	}
	defer f.Close()

	reviews, err := tabular.ReadReviews(f, tabular.ReadOptions{ReviewColumn: cfg.ReviewColumn})
	if err != nil {
		return err
	}

	producer, err := kafka_client.NewProducer(cfg.KafkaConfig(cfg.RawTopic))
	if err != nil {
		return err
	}
	defer producer.Close()

	buffer := utils.NewBatchBuffer[models.RawReview](cfg.BatchSize)
	var messages []kafka_client.Message
	for _, review := range reviews {
		if !buffer.Add(review.WithID()) {
			continue
		}
		if messages, err = appendBatch(messages, buffer.GetAndClear()); err != nil {
			return err
		}
	}
	if buffer.HasData() {
		if messages, err = appendBatch(messages, buffer.GetAndClear()); err != nil {
			return err
		}
	}

	if err := producer.PublishBatch(ctx, cfg.RawTopic, messages); err != nil {
		return err
	}
	slog.Info("[Producer] Published reviews",
		slog.Int("reviews", len(reviews)),
		slog.Int("messages", len(messages)),
		slog.String("topic", cfg.RawTopic))
	return nil
}

// appendBatch encodes a batch as one message keyed by its first review ID.
func appendBatch(messages []kafka_client.Message, batch []models.RawReview) ([]kafka_client.Message, error) {
	value, err := utils.SerializeToJSON(batch)
	if err != nil {
		return nil, err
	}
	return append(messages, kafka_client.Message{Key: []byte(batch[0].ReviewID), Value: value}), nil
}
