// Package pipeline wires the normalizer, term extractor, theme classifier and
// sentiment classifier into a single batch transformation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/reviewflow/internal/aggregate"
	"github.com/spacesedan/reviewflow/internal/models"
	"github.com/spacesedan/reviewflow/internal/normalize"
	"github.com/spacesedan/reviewflow/internal/sentiment"
	"github.com/spacesedan/reviewflow/internal/terms"
	"github.com/spacesedan/reviewflow/internal/themes"
)

type Options struct {
	Sentiment     sentiment.Config
	ThemePolicy   themes.Policy
	ThemeTable    *themes.Table // nil uses the built in table
	Terms         terms.Options
	KeywordReport terms.Options
}

func DefaultOptions() Options {
	return Options{
		Sentiment:     sentiment.Config{Backend: sentiment.BackendLexicon},
		ThemePolicy:   themes.PolicyFirstMatch,
		Terms:         terms.DefaultOptions(),
		KeywordReport: terms.KeywordReportOptions(),
	}
}

// Pipeline is the explicitly constructed, read-only context every stage runs
// against. Build it once and reuse it across batches.
type Pipeline struct {
	normalizer    *normalize.Normalizer
	extractor     *terms.Extractor
	keywordReport *terms.Extractor
	themes        *themes.Classifier
	sentiment     *sentiment.Classifier
}

// New validates every setting before building anything expensive, so a bad
// configuration fails before any review is processed.
func New(opts Options) (*Pipeline, error) {
	if _, err := sentiment.ParseBackend(string(opts.Sentiment.Backend)); err != nil {
		return nil, err
	}
	policy, err := themes.ParsePolicy(string(opts.ThemePolicy))
	if err != nil {
		return nil, err
	}

	extractor, err := terms.NewExtractor(opts.Terms)
	if err != nil {
		return nil, err
	}
	keywordReport, err := terms.NewExtractor(opts.KeywordReport)
	if err != nil {
		return nil, err
	}

	table := themes.DefaultTable()
	if opts.ThemeTable != nil {
		table = *opts.ThemeTable
	}
	themeClassifier, err := themes.NewClassifier(table, policy)
	if err != nil {
		return nil, err
	}

	sentimentClassifier, err := sentiment.New(opts.Sentiment)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		normalizer:    normalize.New(),
		extractor:     extractor,
		keywordReport: keywordReport,
		themes:        themeClassifier,
		sentiment:     sentimentClassifier,
	}, nil
}

func (p *Pipeline) Close() error {
	return p.sentiment.Close()
}

// Run classifies a batch. Cancellation is honoured between stages only;
// problems with a single review never abort the batch.
func (p *Pipeline) Run(ctx context.Context, reviews []models.RawReview) ([]models.ClassifiedReview, error) {
	start := time.Now()

	if err := stageCheck(ctx, "normalize"); err != nil {
		return nil, err
	}
	normalized := make([]models.NormalizedReview, len(reviews))
	corpus := make([]string, len(reviews))
	for i, r := range reviews {
		normalized[i] = p.normalizer.NormalizeReview(r.WithID())
		corpus[i] = normalized[i].CleanedReview
	}
	slog.Info("[Pipeline] Normalized reviews", slog.Int("count", len(reviews)))

	if err := stageCheck(ctx, "extract"); err != nil {
		return nil, err
	}
	keywords, err := p.extractor.Extract(corpus)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] term extraction failed: %w", err)
	}

	if err := stageCheck(ctx, "themes"); err != nil {
		return nil, err
	}
	themeSets := make([]models.ThemeSet, len(reviews))
	for i, kw := range keywords {
		themeSets[i] = p.themes.Classify(models.Terms(kw))
	}

	if err := stageCheck(ctx, "sentiment"); err != nil {
		return nil, err
	}
	sentiments := make([]models.SentimentResult, len(reviews))
	for i, r := range reviews {
		sentiments[i] = p.sentiment.Classify(r.Review)
	}

	classified := make([]models.ClassifiedReview, len(reviews))
	for i := range reviews {
		classified[i] = models.ClassifiedReview{
			NormalizedReview: normalized[i],
			Keywords:         keywords[i],
			Themes:           themeSets[i],
			SentimentResult:  sentiments[i],
		}
	}

	slog.Info("[Pipeline] Classified batch",
		slog.Int("count", len(classified)),
		slog.String("backend", string(p.sentiment.Backend())),
		slog.String("theme_policy", string(p.themes.Policy())),
		slog.Duration("elapsed", time.Since(start)))

	return classified, nil
}

type Report struct {
	Aggregates    []models.AggregateRow
	ThemeCounts   []models.FrequencyRow
	KeywordCounts []models.FrequencyRow
	TopKeywords   []models.TermScore
}

// Report summarizes a classified batch: per-group sentiment, theme and keyword
// frequencies, and the corpus wide top keywords.
func (p *Pipeline) Report(ctx context.Context, rows []models.ClassifiedReview, groupBy []string, minCount int) (*Report, error) {
	if err := stageCheck(ctx, "aggregate"); err != nil {
		return nil, err
	}
	aggregates, err := aggregate.Aggregate(rows, groupBy)
	if err != nil {
		return nil, err
	}

	if err := stageCheck(ctx, "keyword report"); err != nil {
		return nil, err
	}
	corpus := make([]string, len(rows))
	for i, row := range rows {
		corpus[i] = row.CleanedReview
	}
	top, err := p.keywordReport.Global(corpus)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] keyword report failed: %w", err)
	}

	return &Report{
		Aggregates:    aggregates,
		ThemeCounts:   aggregate.ThemeCounts(rows, minCount),
		KeywordCounts: aggregate.KeywordCounts(rows, minCount),
		TopKeywords:   top,
	}, nil
}

func stageCheck(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		slog.Warn("[Pipeline] Cancelled before stage", slog.String("stage", stage))
		return fmt.Errorf("[Pipeline] cancelled before %s: %w", stage, err)
	}
	return nil
}
