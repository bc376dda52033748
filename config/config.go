// Package config turns flags, environment variables and .env files into the
// settings the binaries run with.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/spacesedan/reviewflow/internal/aggregate"
	"github.com/spacesedan/reviewflow/internal/clients"
	"github.com/spacesedan/reviewflow/internal/clients/kafka_client"
	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/pipeline"
	"github.com/spacesedan/reviewflow/internal/sentiment"
	"github.com/spacesedan/reviewflow/internal/terms"
	"github.com/spacesedan/reviewflow/internal/themes"
)

type Config struct {
	// Input and output
	Input        string `long:"input" short:"i" env:"REVIEWS_INPUT" description:"CSV file of raw reviews, or of classified reviews with --report-only"`
	ReportOnly   bool   `long:"report-only" env:"REPORT_ONLY" description:"Rebuild the report tables from a classified reviews CSV"`
	ReviewColumn string `long:"review-column" env:"REVIEW_COLUMN" default:"review" description:"Column holding the review text"`
	OutputDir    string `long:"output-dir" short:"o" env:"OUTPUT_DIR" default:"./output" description:"Directory the result tables are written to"`

	// Sentiment
	SentimentBackend string `long:"sentiment-backend" env:"SENTIMENT_BACKEND" default:"lexicon" description:"Sentiment backend: lexicon, polarity or transformer"`
	MaxLength        int    `long:"max-length" env:"SENTIMENT_MAX_LENGTH" default:"0" description:"Runes scored per review, 0 uses the backend default"`
	ModelPath        string `long:"model-path" env:"SENTIMENT_MODEL_PATH" description:"ONNX model directory for the transformer backend"`
	ModelName        string `long:"model-name" env:"SENTIMENT_MODEL_NAME" description:"Hugging Face model downloaded when no model path is given"`
	LexiconPath      string `long:"polarity-lexicon" env:"POLARITY_LEXICON" description:"JSON lexicon merged into the polarity backend's word list"`

	// Themes
	ThemePolicy string `long:"theme-policy" env:"THEME_POLICY" default:"first-match" description:"Theme policy: first-match or exact-lookup"`
	ThemeRules  string `long:"theme-rules" env:"THEME_RULES" description:"YAML theme rule table replacing the built in one"`

	// Term extraction
	TopN        int     `long:"top-n" env:"TERMS_TOP_N" default:"10" description:"Keywords kept per review"`
	NgramMin    int     `long:"ngram-min" env:"TERMS_NGRAM_MIN" default:"1" description:"Smallest n-gram length"`
	NgramMax    int     `long:"ngram-max" env:"TERMS_NGRAM_MAX" default:"2" description:"Largest n-gram length"`
	MaxDF       float64 `long:"max-df" env:"TERMS_MAX_DF" default:"1.0" description:"Drop terms in more than this fraction of reviews"`
	MinDF       int     `long:"min-df" env:"TERMS_MIN_DF" default:"1" description:"Drop terms in fewer than this many reviews"`
	MaxFeatures int     `long:"max-features" env:"TERMS_MAX_FEATURES" default:"5000" description:"Vocabulary size limit, 0 for none"`

	// Reports
	ReportTopN  int      `long:"report-top-n" env:"REPORT_TOP_N" default:"20" description:"Corpus wide keywords reported"`
	ReportMaxDF float64  `long:"report-max-df" env:"REPORT_MAX_DF" default:"0.95" description:"max_df of the keyword report"`
	ReportMinDF int      `long:"report-min-df" env:"REPORT_MIN_DF" default:"2" description:"min_df of the keyword report"`
	GroupBy     []string `long:"group-by" env:"GROUP_BY" env-delim:"," default:"app_name" default:"rating" description:"Fields aggregates are grouped by"`
	MinCount    int      `long:"min-count" env:"MIN_COUNT" default:"1" description:"Minimum count for theme and keyword frequencies"`

	// Sinks
	StoreDynamoDB   bool   `long:"dynamodb" env:"STORE_DYNAMODB" description:"Store classified reviews and aggregates in DynamoDB"`
	ReviewsTable    string `long:"reviews-table" env:"DYNAMODB_REVIEWS_TABLE" default:"ClassifiedReviews" description:"DynamoDB table for classified reviews"`
	AggregatesTable string `long:"aggregates-table" env:"DYNAMODB_AGGREGATES_TABLE" default:"ReviewAggregates" description:"DynamoDB table for aggregates"`
	AWSRegion       string `long:"aws-region" env:"AWS_REGION" default:"us-west-2" description:"AWS region"`
	AWSEndpoint     string `long:"aws-endpoint" env:"AWS_ENDPOINT" description:"Endpoint override, e.g. DynamoDB local"`

	PublishKafka    bool          `long:"kafka" env:"PUBLISH_KAFKA" description:"Publish classified reviews to Kafka"`
	KafkaBroker     string        `long:"kafka-broker" env:"KAFKA_BROKER" default:"localhost:29092" description:"Kafka bootstrap servers"`
	KafkaGroupID    string        `long:"kafka-group" env:"KAFKA_CONSUMER_GROUP_ID" default:"reviewflow-classifier" description:"Consumer group of the streaming classifier"`
	TransactionalID string        `long:"kafka-transactional-id" env:"KAFKA_TRANSACTIONAL_ID" default:"reviewflow-producer-1" description:"Transactional ID of the producer"`
	RawTopic        string        `long:"raw-topic" env:"KAFKA_RAW_TOPIC" default:"raw-reviews" description:"Topic raw review batches are read from"`
	ClassifiedTopic string        `long:"classified-topic" env:"KAFKA_CLASSIFIED_TOPIC" default:"classified-reviews" description:"Topic classified reviews are published to"`
	BatchSize       int           `long:"batch-size" env:"BATCH_SIZE" default:"50" description:"Reviews classified together by the consumer"`
	BatchTimeout    time.Duration `long:"batch-timeout" env:"BATCH_TIMEOUT" default:"5s" description:"Longest a partial consumer batch waits"`

	CacheValkey bool          `long:"valkey-cache" env:"VALKEY_CACHE" description:"Cache sentiment scores in Valkey"`
	ValkeyAddr  string        `long:"valkey-addr" env:"VALKEY_INIT_ADDRESS" default:"localhost:6379" description:"Valkey address"`
	ValkeyPass  string        `long:"valkey-password" env:"VALKEY_PASSWORD" description:"Valkey password"`
	ValkeyTLS   bool          `long:"valkey-tls" env:"VALKEY_TLS" description:"Connect to Valkey over TLS"`
	CacheTTL    time.Duration `long:"cache-ttl" env:"VALKEY_CACHE_TTL" default:"24h" description:"Lifetime of cached sentiment scores"`

	LogLevel string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn or error"`
}

// Load parses args and the environment. It returns nil, nil when help was
// requested.
func Load(args []string) (*Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, nil
}

// PipelineOptions validates every pipeline setting and builds the options the
// pipeline is constructed from.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	backend, err := sentiment.ParseBackend(c.SentimentBackend)
	if err != nil {
		return pipeline.Options{}, err
	}
	policy, err := themes.ParsePolicy(c.ThemePolicy)
	if err != nil {
		return pipeline.Options{}, err
	}
	if c.MaxLength < 0 {
		return pipeline.Options{}, &models.ConfigurationError{Setting: "max_length", Value: fmt.Sprint(c.MaxLength), Reason: "must not be negative"}
	}

	opts := pipeline.Options{
		Sentiment: sentiment.Config{
			Backend:     backend,
			MaxLength:   c.MaxLength,
			ModelPath:   c.ModelPath,
			ModelName:   c.ModelName,
			LexiconPath: c.LexiconPath,
		},
		ThemePolicy: policy,
		Terms: terms.Options{
			TopN:        c.TopN,
			NgramMin:    c.NgramMin,
			NgramMax:    c.NgramMax,
			MaxDF:       c.MaxDF,
			MinDF:       c.MinDF,
			MaxFeatures: c.MaxFeatures,
		},
		KeywordReport: terms.Options{
			TopN:     c.ReportTopN,
			NgramMin: c.NgramMin,
			NgramMax: c.NgramMax,
			MaxDF:    c.ReportMaxDF,
			MinDF:    c.ReportMinDF,
		},
	}

	if err := opts.Terms.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	if err := opts.KeywordReport.Validate(); err != nil {
		return pipeline.Options{}, err
	}

	if c.ThemeRules != "" {
		table, err := themes.LoadTable(c.ThemeRules)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.ThemeTable = &table
	}

	return opts, nil
}

// Validate checks the settings outside the pipeline itself.
func (c *Config) Validate() error {
	if err := aggregate.ValidateGroupBy(c.GroupBy); err != nil {
		return err
	}
	if c.MinCount < 0 {
		return &models.ConfigurationError{Setting: "min_count", Value: fmt.Sprint(c.MinCount), Reason: "must not be negative"}
	}
	if c.BatchSize <= 0 {
		return &models.ConfigurationError{Setting: "batch_size", Value: fmt.Sprint(c.BatchSize), Reason: "must be positive"}
	}
	if c.CacheValkey && c.ValkeyAddr == "" {
		return &models.ConfigurationError{Setting: "valkey_addr", Value: c.ValkeyAddr, Reason: "required when the Valkey cache is enabled"}
	}
	_, err := c.PipelineOptions()
	return err
}

func (c *Config) KafkaConfig(topic string) kafka_client.KafkaConfig {
	return kafka_client.KafkaConfig{
		Broker:          c.KafkaBroker,
		GroupID:         c.KafkaGroupID,
		Topic:           topic,
		TransactionalID: c.TransactionalID,
	}
}

func (c *Config) AWSOptions() clients.AWSOptions {
	return clients.AWSOptions{Region: c.AWSRegion, Endpoint: c.AWSEndpoint}
}

func (c *Config) ValkeyOptions() clients.ValkeyOptions {
	return clients.ValkeyOptions{
		Addr:     c.ValkeyAddr,
		Password: c.ValkeyPass,
		TLS:      c.ValkeyTLS,
		TTL:      c.CacheTTL,
	}
}
