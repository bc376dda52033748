package config

import (
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/sentiment"
	"github.com/spacesedan/reviewflow/internal/themes"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ReviewColumn != "review" || cfg.OutputDir != "./output" {
		t.Errorf("unexpected io defaults: %+v", cfg)
	}
	if cfg.TopN != 10 || cfg.NgramMin != 1 || cfg.NgramMax != 2 || cfg.MaxDF != 1.0 || cfg.MinDF != 1 || cfg.MaxFeatures != 5000 {
		t.Errorf("unexpected term defaults: %+v", cfg)
	}
	if cfg.RawTopic != "raw-reviews" || cfg.ClassifiedTopic != "classified-reviews" {
		t.Errorf("unexpected topics: %q %q", cfg.RawTopic, cfg.ClassifiedTopic)
	}
	if cfg.BatchTimeout != 5*time.Second || cfg.CacheTTL != 24*time.Hour {
		t.Errorf("unexpected durations: %v %v", cfg.BatchTimeout, cfg.CacheTTL)
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("THEME_POLICY", "exact-lookup")
	t.Setenv("POLARITY_LEXICON", "lexicon/app_reviews.json")

	cfg, err := Load([]string{"--sentiment-backend", "polarity", "--group-by", "rating", "--min-df", "2"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ThemePolicy != "exact-lookup" {
		t.Errorf("expected theme policy from env, got %q", cfg.ThemePolicy)
	}
	if !slices.Equal(cfg.GroupBy, []string{"rating"}) {
		t.Errorf("expected group by [rating], got %v", cfg.GroupBy)
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Sentiment.Backend != sentiment.BackendPolarity {
		t.Errorf("expected polarity backend, got %q", opts.Sentiment.Backend)
	}
	if opts.Sentiment.LexiconPath != "lexicon/app_reviews.json" {
		t.Errorf("expected lexicon path from env, got %q", opts.Sentiment.LexiconPath)
	}
	if opts.ThemePolicy != themes.PolicyExactLookup {
		t.Errorf("expected exact-lookup, got %q", opts.ThemePolicy)
	}
	if opts.Terms.MinDF != 2 {
		t.Errorf("expected min_df 2, got %d", opts.Terms.MinDF)
	}
}

func TestLoadHelp(t *testing.T) {
	cfg, err := Load([]string{"--help"})
	if err != nil || cfg != nil {
		t.Errorf("expected nil config and error for --help, got %v, %v", cfg, err)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		mutate func(*Config)
		desc   string
	}{
		{func(c *Config) { c.SentimentBackend = "bert" }, "unknown backend"},
		{func(c *Config) { c.ThemePolicy = "majority" }, "unknown theme policy"},
		{func(c *Config) { c.GroupBy = []string{"country"} }, "unknown group field"},
		{func(c *Config) { c.MaxDF = 0 }, "max_df out of range"},
		{func(c *Config) { c.NgramMax = 0 }, "ngram range inverted"},
		{func(c *Config) { c.MinCount = -1 }, "negative min_count"},
		{func(c *Config) { c.BatchSize = 0 }, "zero batch size"},
		{func(c *Config) { c.ThemeRules = filepath.Join(t.TempDir(), "missing.yaml") }, "missing rule table"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !models.IsConfigurationError(err) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestPipelineOptionsLoadsThemeRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := "rules:\n  - theme: Cards\n    keywords: [card]\n"
	if err := os.WriteFile(path, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig()
	cfg.ThemeRules = path

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.ThemeTable == nil || len(opts.ThemeTable.Rules) != 1 || opts.ThemeTable.Rules[0].Theme != "Cards" {
		t.Errorf("unexpected theme table: %+v", opts.ThemeTable)
	}
}

func validConfig() Config {
	return Config{
		ReviewColumn:     "review",
		SentimentBackend: "lexicon",
		ThemePolicy:      "first-match",
		TopN:             10,
		NgramMin:         1,
		NgramMax:         2,
		MaxDF:            1.0,
		MinDF:            1,
		MaxFeatures:      5000,
		ReportTopN:       20,
		ReportMaxDF:      0.95,
		ReportMinDF:      2,
		GroupBy:          []string{"app_name", "rating"},
		MinCount:         1,
		BatchSize:        50,
	}
}

// clearEnv unsets every variable Config reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	fields := reflect.TypeOf(Config{})
	for i := range fields.NumField() {
		key := fields.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
