package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spacesedan/reviewflow/config"
	"github.com/spacesedan/reviewflow/internal/clients"
	"github.com/spacesedan/reviewflow/internal/clients/kafka_client"
	"github.com/spacesedan/reviewflow/internal/db"
	"github.com/spacesedan/reviewflow/internal/logging"
	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/pipeline"
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
		slog.Error("[Main] Run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Input == "" {
		return &models.ConfigurationError{Setting: "input", Value: "", Reason: "an input CSV is required"}
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

	start := time.Now()
	rows, err := loadRows(ctx, cfg, p)
	if err != nil {
		return err
	}
	report, err := p.Report(ctx, rows, cfg.GroupBy, cfg.MinCount)
	if err != nil {
		return err
	}
	slog.Info("[Main] Classification complete",
		slog.Int("reviews", len(rows)),
		slog.Int("groups", len(report.Aggregates)),
		slog.Duration("elapsed", time.Since(start)))

	if err := writeOutputs(cfg.OutputDir, cfg.GroupBy, rows, report, !cfg.ReportOnly); err != nil {
		return err
	}

	if cfg.StoreDynamoDB {
		if err := storeResults(ctx, cfg, rows, report.Aggregates); err != nil {
			return err
		}
	}

	if cfg.PublishKafka && !cfg.ReportOnly {
		if err := publishResults(ctx, cfg, rows); err != nil {
			return err
		}
	}

	return nil
}

// loadRows classifies the raw input, or in report-only mode reads rows that
// were classified by an earlier run.
func loadRows(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline) ([]models.ClassifiedReview, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("[Main] failed to open %s: %w", cfg.Input, err)
	}
	defer f.Close()

	if cfg.ReportOnly {
		rows, err := tabular.ReadClassified(f)
		if err != nil {
			return nil, err
		}
		slog.Info("[Main] Loaded classified reviews", slog.Int("count", len(rows)))
		return rows, nil
	}

	reviews, err := tabular.ReadReviews(f, tabular.ReadOptions{ReviewColumn: cfg.ReviewColumn})
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, reviews)
}

func writeOutputs(dir string, groupBy []string, rows []models.ClassifiedReview, report *pipeline.Report, withClassified bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("[Main] failed to create output directory: %w", err)
	}

	type output struct {
		name  string
		write func(io.Writer) error
	}
	var outputs []output
	if withClassified {
		outputs = append(outputs, output{"classified_reviews.csv", func(w io.Writer) error { return tabular.WriteClassified(w, rows) }})
	}
	outputs = append(outputs, []output{
		{"sentiment_aggregates.csv", func(w io.Writer) error { return tabular.WriteAggregates(w, groupBy, report.Aggregates) }},
		{"theme_counts.csv", func(w io.Writer) error { return tabular.WriteFrequencies(w, "theme", report.ThemeCounts) }},
		{"keyword_counts.csv", func(w io.Writer) error { return tabular.WriteFrequencies(w, "keyword", report.KeywordCounts) }},
		{"top_keywords.csv", func(w io.Writer) error { return tabular.WriteTermWeights(w, report.TopKeywords) }},
	}...)

	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := writeFile(path, out.write); err != nil {
			return err
		}
		slog.Info("[Main] Wrote table", slog.String("path", path))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[Main] failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("[Main] failed to write %s: %w", path, err)
	}
	return f.Close()
}

func storeResults(ctx context.Context, cfg *config.Config, rows []models.ClassifiedReview, aggregates []models.AggregateRow) error {
	client, err := clients.NewDynamoDBClient(ctx, cfg.AWSOptions())
	if err != nil {
		return err
	}

	store := db.NewStore(client, cfg.ReviewsTable, cfg.AggregatesTable)
	if err := store.StoreClassifiedReviews(ctx, rows); err != nil {
		return err
	}
	return store.StoreAggregates(ctx, aggregates)
}

func publishResults(ctx context.Context, cfg *config.Config, rows []models.ClassifiedReview) error {
	producer, err := kafka_client.NewProducer(cfg.KafkaConfig(cfg.ClassifiedTopic))
	if err != nil {
		return err
	}
	defer producer.Close()

	messages := make([]kafka_client.Message, 0, len(rows))
	for _, row := range rows {
		value, err := utils.SerializeToJSON(row)
		if err != nil {
			return err
		}
		messages = append(messages, kafka_client.Message{Key: []byte(row.ReviewID), Value: value})
	}

	for start := 0; start < len(messages); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(messages))
		if err := producer.PublishBatch(ctx, cfg.ClassifiedTopic, messages[start:end]); err != nil {
			return err
		}
	}
	return nil
}
