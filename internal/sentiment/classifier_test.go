package sentiment

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spacesedan/reviewflow/internal/models"
)

type stubScorer struct {
	score float64
	err   error
	panic bool
	seen  []string
}

func (s *stubScorer) Score(text string) (float64, error) {
	s.seen = append(s.seen, text)
	if s.panic {
		panic("model exploded")
	}
	return s.score, s.err
}

func stubClassifier(backend Backend, scorer Scorer, maxLength int) *Classifier {
	return &Classifier{
		backend:    backend,
		scorer:     scorer,
		thresholds: backends[backend].thresholds,
		maxLength:  maxLength,
	}
}

func TestThresholdLabels(t *testing.T) {
	tests := []struct {
		backend Backend
		score   float64
		want    models.SentimentLabel
	}{
		{BackendLexicon, 0.05, models.SentimentPositive},
		{BackendLexicon, 0.0499, models.SentimentNeutral},
		{BackendLexicon, -0.05, models.SentimentNegative},
		{BackendLexicon, -0.0499, models.SentimentNeutral},
		{BackendLexicon, 0.9, models.SentimentPositive},
		{BackendPolarity, 0.1, models.SentimentNeutral},
		{BackendPolarity, 0.1001, models.SentimentPositive},
		{BackendPolarity, -0.1, models.SentimentNeutral},
		{BackendPolarity, -0.1001, models.SentimentNegative},
		{BackendPolarity, 0, models.SentimentNeutral},
		{BackendTransformer, 0.97, models.SentimentPositive},
		{BackendTransformer, -0.6, models.SentimentNegative},
	}

	for _, tt := range tests {
		thresholds, ok := ThresholdsFor(tt.backend)
		if !ok {
			t.Fatalf("no thresholds for %s", tt.backend)
		}
		if got := thresholds.Label(tt.score); got != tt.want {
			t.Errorf("%s: Label(%v) = %s, want %s", tt.backend, tt.score, got, tt.want)
		}
	}
}

func TestUnknownBackendIsConfigurationError(t *testing.T) {
	if _, err := ParseBackend("bert"); !models.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
	if _, err := New(Config{Backend: "sentiwordnet"}); !models.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError from New, got %v", err)
	}

	b, err := ParseBackend(" Lexicon ")
	if err != nil || b != BackendLexicon {
		t.Errorf("ParseBackend(\" Lexicon \") = %q, %v", b, err)
	}
}

func TestClassifyFallbackOnFailure(t *testing.T) {
	fallback := models.FallbackSentiment()

	tests := []struct {
		scorer Scorer
		text   string
		desc   string
	}{
		{&stubScorer{err: errors.New("tokenizer failed")}, "some review", "scorer error"},
		{&stubScorer{panic: true}, "some review", "scorer panic"},
		{&stubScorer{score: math.NaN()}, "some review", "NaN score"},
		{&stubScorer{score: math.Inf(1)}, "some review", "infinite score"},
		{&stubScorer{score: 0.8}, "bad \xff\xfe bytes", "invalid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			c := stubClassifier(BackendLexicon, tt.scorer, 100)
			if got := c.Classify(tt.text); got != fallback {
				t.Errorf("expected fallback %+v, got %+v", fallback, got)
			}
		})
	}

	if fallback.Label != models.SentimentNeutral || fallback.Score != 0.0 {
		t.Errorf("fallback must be (neutral, 0.0), got %+v", fallback)
	}
}

func TestClassifyEmptyText(t *testing.T) {
	scorer := &stubScorer{score: 0.9}
	c := stubClassifier(BackendLexicon, scorer, 100)

	got := c.Classify("   ")
	if got != models.FallbackSentiment() {
		t.Errorf("expected neutral result for blank text, got %+v", got)
	}
	if len(scorer.seen) != 0 {
		t.Errorf("blank text should not reach the scorer")
	}
}

func TestClassifyTruncatesLongInput(t *testing.T) {
	scorer := &stubScorer{score: 0.3}
	c := stubClassifier(BackendPolarity, scorer, 5)

	got := c.Classify("héllo wörld")
	if got.Label != models.SentimentPositive || got.Score != 0.3 {
		t.Errorf("unexpected result %+v", got)
	}
	if len(scorer.seen) != 1 || scorer.seen[0] != "héllo" {
		t.Errorf("expected truncated text %q, got %q", "héllo", scorer.seen)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate with no limit = %q", got)
	}
	if got := Truncate("abc", 5); got != "abc" {
		t.Errorf("Truncate shorter text = %q", got)
	}
	if got := Truncate(strings.Repeat("é", 10), 3); got != "ééé" {
		t.Errorf("Truncate runes = %q", got)
	}
}

func TestLexiconBackend(t *testing.T) {
	c, err := New(Config{Backend: BackendLexicon})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		text string
		want models.SentimentLabel
	}{
		{"I love this app, it is great!", models.SentimentPositive},
		{"This app is terrible and horrible, worst experience ever", models.SentimentNegative},
		{"", models.SentimentNeutral},
	}

	for _, tt := range tests {
		got := c.Classify(tt.text)
		if got.Label != tt.want {
			t.Errorf("Classify(%q) = %+v, want label %s", tt.text, got, tt.want)
		}
		if got.Score < -1 || got.Score > 1 {
			t.Errorf("compound score %v out of range", got.Score)
		}
	}
}

func TestLabelsFollowThresholds(t *testing.T) {
	texts := []string{
		"great new feature, love the update",
		"app keeps crashing and freezing",
		"login password reset not working",
		"it is an app",
		"not bad at all",
		"**Awesome** support, thanks!",
	}

	for _, backend := range []Backend{BackendLexicon, BackendPolarity} {
		c, err := New(Config{Backend: backend})
		if err != nil {
			t.Fatal(err)
		}
		thresholds, _ := ThresholdsFor(backend)
		for _, text := range texts {
			got := c.Classify(text)
			if got.Label != thresholds.Label(got.Score) {
				t.Errorf("%s: Classify(%q) = %+v, label inconsistent with thresholds", backend, text, got)
			}
		}
	}
}

func TestConvertMarkdownToText(t *testing.T) {
	got := ConvertMarkdownToText("**Great** app, see [the docs](https://example.com/help) or www.example.com today")
	want := "Great app, see the docs or today"
	if got != want {
		t.Errorf("ConvertMarkdownToText = %q, want %q", got, want)
	}
}
