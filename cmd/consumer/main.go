package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/reviewflow/config"
	"github.com/spacesedan/reviewflow/internal/clients"
	"github.com/spacesedan/reviewflow/internal/clients/kafka_client"
	"github.com/spacesedan/reviewflow/internal/consumers"
	"github.com/spacesedan/reviewflow/internal/db"
	"github.com/spacesedan/reviewflow/internal/logging"
	"github.com/spacesedan/reviewflow/internal/pipeline"
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
		slog.Error("[Main] Consumer stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}

	if cfg.CacheValkey {
		cache, err := clients.NewValkeyClient(cfg.ValkeyOptions())
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Sentiment.Cache = cache
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(cfg.KafkaConfig(cfg.ClassifiedTopic))
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	var store consumers.ReviewStore
	if cfg.StoreDynamoDB {
		client, err := clients.NewDynamoDBClient(ctx, cfg.AWSOptions())
		if err != nil {
			return err
		}
		store = db.NewStore(client, cfg.ReviewsTable, cfg.AggregatesTable)
	}

	consumer, err := kafka_client.NewConsumer(cfg.KafkaConfig(cfg.RawTopic), cfg.RawTopic)
	if err != nil {
		return err
	}
	defer consumer.Close()

	rawReviews := consumers.NewRawReviewConsumer(p, producer, kafka_client.NewCommitHandler(ctx, consumer), store,
		consumers.RawReviewConsumerOptions{
			Topic:        cfg.ClassifiedTopic,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
		})

	slog.Info("[Main] Starting consumer", slog.String("topic", cfg.RawTopic))
	return rawReviews.Start(ctx, kafka_client.NewKafkaMessageIterator(ctx, consumer))
}
