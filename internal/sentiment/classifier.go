// Package sentiment scores review text with one of several interchangeable
// backends and maps the score to a polarity label.
package sentiment

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/reviewflow/internal/models"
)

// Scorer produces a raw sentiment score for a piece of text.
type Scorer interface {
	Score(text string) (float64, error)
}

type Config struct {
	Backend     Backend
	MaxLength   int         // overrides the backend's truncation length when > 0
	ModelPath   string      // transformer backend: directory holding the ONNX model
	ModelName   string      // transformer backend: model downloaded when ModelPath is missing
	LexiconPath string      // polarity backend: JSON lexicon merged over the built in word list
	Cache       ResultCache // optional score cache
}

// Classifier is built once per batch and is safe for concurrent use.
type Classifier struct {
	backend    Backend
	scorer     Scorer
	thresholds Thresholds
	maxLength  int
}

// New resolves the backend and builds its scorer. An unknown backend is a
// ConfigurationError.
func New(cfg Config) (*Classifier, error) {
	backend, err := ParseBackend(string(cfg.Backend))
	if err != nil {
		return nil, err
	}
	entry := backends[backend]

	scorer, err := entry.build(cfg)
	if err != nil {
		return nil, fmt.Errorf("[SentimentClassifier] failed to build %s backend: %w", backend, err)
	}
	if cfg.Cache != nil {
		scorer = NewCachedScorer(backend, scorer, cfg.Cache)
	}

	maxLength := entry.maxLength
	if cfg.MaxLength > 0 {
		maxLength = cfg.MaxLength
	}

	slog.Info("[SentimentClassifier] Initialized",
		slog.String("backend", string(backend)),
		slog.Int("max_length", maxLength),
		slog.Bool("cached", cfg.Cache != nil))

	return &Classifier{
		backend:    backend,
		scorer:     scorer,
		thresholds: entry.thresholds,
		maxLength:  maxLength,
	}, nil
}

func (c *Classifier) Backend() Backend {
	return c.backend
}

// Classify never fails: any scoring problem yields the neutral fallback.
func (c *Classifier) Classify(text string) (result models.SentimentResult) {
	if strings.TrimSpace(text) == "" {
		return models.FallbackSentiment()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("[SentimentClassifier] Scorer panicked, using fallback",
				slog.String("backend", string(c.backend)),
				slog.Any("panic", r))
			result = models.FallbackSentiment()
		}
	}()

	score, err := c.score(text)
	if err != nil {
		slog.Warn("[SentimentClassifier] Scoring failed, using fallback",
			slog.String("backend", string(c.backend)),
			slog.String("error", err.Error()))
		return models.FallbackSentiment()
	}

	return models.SentimentResult{Label: c.thresholds.Label(score), Score: score}
}

func (c *Classifier) score(text string) (float64, error) {
	if !utf8.ValidString(text) {
		return 0, fmt.Errorf("%w: text is not valid UTF-8", models.ErrScoringFailure)
	}

	score, err := c.scorer.Score(Truncate(text, c.maxLength))
	if err != nil {
		if !errors.Is(err, models.ErrScoringFailure) {
			err = fmt.Errorf("%w: %w", models.ErrScoringFailure, err)
		}
		return 0, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: score %v is not finite", models.ErrScoringFailure, score)
	}
	return score, nil
}

// Close releases backend resources such as model sessions.
func (c *Classifier) Close() error {
	if closer, ok := c.scorer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Truncate cuts text to at most maxRunes runes.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes])
}
