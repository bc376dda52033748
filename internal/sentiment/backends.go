package sentiment

import (
	"strings"

	"github.com/spacesedan/reviewflow/internal/models"
)

type Backend string

const (
	BackendLexicon     Backend = "lexicon"
	BackendPolarity    Backend = "polarity"
	BackendTransformer Backend = "transformer"
)

// Thresholds map a backend's numeric score onto a label.
type Thresholds struct {
	Positive  float64
	Negative  float64
	Inclusive bool // whether a score equal to a bound already carries its label
}

func (t Thresholds) Label(score float64) models.SentimentLabel {
	if t.Inclusive {
		switch {
		case score >= t.Positive:
			return models.SentimentPositive
		case score <= t.Negative:
			return models.SentimentNegative
		}
		return models.SentimentNeutral
	}

	switch {
	case score > t.Positive:
		return models.SentimentPositive
	case score < t.Negative:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

type backendSpec struct {
	thresholds Thresholds
	maxLength  int // runes scored; longer input is truncated
	build      func(Config) (Scorer, error)
}

var backends = map[Backend]backendSpec{
	BackendLexicon: {
		thresholds: Thresholds{Positive: 0.05, Negative: -0.05, Inclusive: true},
		maxLength:  5000,
		build:      newVaderScorer,
	},
	BackendPolarity: {
		thresholds: Thresholds{Positive: 0.1, Negative: -0.1},
		maxLength:  5000,
		build:      newPolarityScorer,
	},
	BackendTransformer: {
		thresholds: Thresholds{Positive: 0, Negative: 0},
		maxLength:  512,
		build:      newTransformerScorer,
	},
}

func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := backends[b]; !ok {
		return "", &models.ConfigurationError{Setting: "sentiment_backend", Value: name, Reason: "unknown sentiment backend"}
	}
	return b, nil
}

// ThresholdsFor returns the label thresholds of a backend.
func ThresholdsFor(b Backend) (Thresholds, bool) {
	entry, ok := backends[b]
	return entry.thresholds, ok
}
