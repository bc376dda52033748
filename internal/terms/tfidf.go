// Package terms ranks salient unigrams and bigrams per review with a smoothed
// TF-IDF weighting over the batch.
package terms

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"github.com/spacesedan/reviewflow/internal/models"
)

// minTokenLength drops single character tokens before n-gram construction.
const minTokenLength = 2

type Options struct {
	TopN        int     // terms kept per document (or globally); 0 keeps all
	NgramMin    int     // smallest n-gram size
	NgramMax    int     // largest n-gram size
	MaxDF       float64 // terms found in more than MaxDF*N documents are dropped
	MinDF       int     // terms found in fewer than MinDF documents are dropped
	MaxFeatures int     // vocabulary cap by corpus frequency; 0 is unbounded
}

// DefaultOptions are the per-review extraction settings used by the pipeline.
func DefaultOptions() Options {
	return Options{
		TopN:        10,
		NgramMin:    1,
		NgramMax:    2,
		MaxDF:       1.0,
		MinDF:       1,
		MaxFeatures: 5000,
	}
}

// KeywordReportOptions are the settings for the corpus wide keyword report.
func KeywordReportOptions() Options {
	return Options{
		TopN:     20,
		NgramMin: 1,
		NgramMax: 2,
		MaxDF:    0.95,
		MinDF:    2,
	}
}

func (o Options) Validate() error {
	switch {
	case o.TopN < 0:
		return &models.ConfigurationError{Setting: "top_n", Value: fmt.Sprint(o.TopN), Reason: "must not be negative"}
	case o.NgramMin < 1:
		return &models.ConfigurationError{Setting: "ngram_min", Value: fmt.Sprint(o.NgramMin), Reason: "must be at least 1"}
	case o.NgramMax < o.NgramMin:
		return &models.ConfigurationError{Setting: "ngram_max", Value: fmt.Sprint(o.NgramMax), Reason: "must not be smaller than ngram_min"}
	case o.MaxDF <= 0 || o.MaxDF > 1:
		return &models.ConfigurationError{Setting: "max_df", Value: fmt.Sprint(o.MaxDF), Reason: "must be in (0, 1]"}
	case o.MinDF < 1:
		return &models.ConfigurationError{Setting: "min_df", Value: fmt.Sprint(o.MinDF), Reason: "must be at least 1"}
	case o.MaxFeatures < 0:
		return &models.ConfigurationError{Setting: "max_features", Value: fmt.Sprint(o.MaxFeatures), Reason: "must not be negative"}
	}
	return nil
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	opts Options
}

func NewExtractor(opts Options) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{opts: opts}, nil
}

func (e *Extractor) Options() Options {
	return e.opts
}

// Extract returns one ranked term list per input document. Documents whose
// terms are all filtered out get an empty list.
func (e *Extractor) Extract(corpus []string) ([][]models.TermScore, error) {
	m := e.fit(corpus)

	results := make([][]models.TermScore, len(corpus))
	for d, row := range m.weights {
		scores := make([]models.TermScore, 0, len(row))
		for _, col := range sortedColumns(row) {
			scores = append(scores, models.TermScore{Term: m.vocab[col], Weight: row[col]})
		}
		results[d] = e.top(scores)
	}

	return results, nil
}

// Global ranks terms across the whole corpus by their summed weights.
func (e *Extractor) Global(corpus []string) ([]models.TermScore, error) {
	m := e.fit(corpus)

	sums := make(map[int]float64)
	for _, row := range m.weights {
		for col, w := range row {
			sums[col] += w
		}
	}

	scores := make([]models.TermScore, 0, len(sums))
	for _, col := range sortedColumns(sums) {
		scores = append(scores, models.TermScore{Term: m.vocab[col], Weight: sums[col]})
	}

	return e.top(scores), nil
}

func (e *Extractor) top(scores []models.TermScore) []models.TermScore {
	if e.opts.TopN > 0 && len(scores) > e.opts.TopN {
		return scores[:e.opts.TopN]
	}
	return scores
}

// matrix is a sparse document-term weight matrix. Column indices are
// vocabulary insertion order, which doubles as the tie-break order.
type matrix struct {
	vocab   []string
	weights []map[int]float64
}

func (e *Extractor) fit(corpus []string) matrix {
	index := make(map[string]int)
	var vocab []string
	counts := make([]map[int]float64, len(corpus))

	for d, doc := range corpus {
		counts[d] = make(map[int]float64)
		for _, gram := range e.ngrams(doc) {
			col, ok := index[gram]
			if !ok {
				col = len(vocab)
				index[gram] = col
				vocab = append(vocab, gram)
			}
			counts[d][col]++
		}
	}

	keep := e.prune(vocab, counts)

	n := float64(len(corpus))
	df := documentFrequencies(counts)
	weights := make([]map[int]float64, len(corpus))
	for d, row := range counts {
		weights[d] = make(map[int]float64)
		cols := make([]int, 0, len(row))
		values := make([]float64, 0, len(row))
		for col, tf := range row {
			if !keep[col] {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[col]))) + 1
			cols = append(cols, col)
			values = append(values, tf*idf)
		}

		if norm := floats.Norm(values, 2); norm > 0 {
			floats.Scale(1/norm, values)
		}
		for i, col := range cols {
			if values[i] > 0 {
				weights[d][col] = values[i]
			}
		}
	}

	slog.Debug("[TermExtractor] Fitted corpus",
		slog.Int("documents", len(corpus)),
		slog.Int("vocabulary", len(vocab)),
		slog.Int("kept", countKept(keep)))

	return matrix{vocab: vocab, weights: weights}
}

// prune applies the document frequency bounds and the feature cap.
func (e *Extractor) prune(vocab []string, counts []map[int]float64) []bool {
	keep := make([]bool, len(vocab))
	df := documentFrequencies(counts)
	maxDocs := e.opts.MaxDF * float64(len(counts))

	total := make([]float64, len(vocab))
	for _, row := range counts {
		for col, tf := range row {
			total[col] += tf
		}
	}

	var kept []int
	for col := range vocab {
		if df[col] < e.opts.MinDF || float64(df[col]) > maxDocs {
			continue
		}
		keep[col] = true
		kept = append(kept, col)
	}

	if e.opts.MaxFeatures > 0 && len(kept) > e.opts.MaxFeatures {
		sort.SliceStable(kept, func(i, j int) bool {
			return total[kept[i]] > total[kept[j]]
		})
		for _, col := range kept[e.opts.MaxFeatures:] {
			keep[col] = false
		}
	}

	return keep
}

func (e *Extractor) ngrams(doc string) []string {
	var tokens []string
	for _, tok := range strings.Fields(doc) {
		if utf8.RuneCountInString(tok) >= minTokenLength {
			tokens = append(tokens, tok)
		}
	}

	var grams []string
	for n := e.opts.NgramMin; n <= e.opts.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

func documentFrequencies(counts []map[int]float64) map[int]int {
	df := make(map[int]int)
	for _, row := range counts {
		for col := range row {
			df[col]++
		}
	}
	return df
}

// sortedColumns orders columns by descending weight, then by vocabulary order.
func sortedColumns(row map[int]float64) []int {
	cols := make([]int, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool {
		a, b := row[cols[i]], row[cols[j]]
		if a != b {
			return a > b
		}
		return cols[i] < cols[j]
	})
	return cols
}

func countKept(keep []bool) int {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	return n
}
