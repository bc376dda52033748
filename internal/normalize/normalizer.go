// Package normalize turns raw review text into a lowercase, lemmatized,
// stopword free token sequence.
package normalize

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spacesedan/reviewflow/internal/models"
)

const stopwordLang = "en"

// contractionSuffixes are detached before the alphabetic check, mirroring how
// "don't" becomes "do" + "n't".
var contractionSuffixes = []string{"n't", "'s", "'re", "'ll", "'ve", "'m", "'d"}

var contractionStems = map[string]string{
	"can't":  "can",
	"won't":  "will",
	"shan't": "shall",
	"ain't":  "be",
	"cannot": "can",
}

// Normalizer holds the read-only stopword and lemma tables. Build it once with
// New and share it across a batch.
type Normalizer struct {
	lemmatizer *lemmatizer
	extraStops map[string]struct{}
}

func New() *Normalizer {
	n := &Normalizer{
		lemmatizer: newLemmatizer(),
		extraStops: map[string]struct{}{"s": {}, "t": {}, "n't": {}},
	}
	slog.Debug("[Normalizer] Initialized",
		slog.Int("lemmas", len(n.lemmatizer.lemmas)),
		slog.Int("stems", len(n.lemmatizer.stems)))
	return n
}

// Normalize returns the whitespace joined token sequence for text. Empty input
// maps to the empty string.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// NormalizeReview derives a NormalizedReview without touching the input.
func (n *Normalizer) NormalizeReview(r models.RawReview) models.NormalizedReview {
	tokens := n.Tokens(r.Review)
	return models.NormalizedReview{
		RawReview:     r,
		CleanedReview: strings.Join(tokens, " "),
		Tokens:        tokens,
	}
}

func (n *Normalizer) Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	folded, _, err := transform.String(foldAccents(), text)
	if err != nil {
		slog.Warn("[Normalizer] Failed to fold accents, using raw text",
			slog.String("error", err.Error()))
		folded = text
	}
	folded = strings.ToLower(folded)

	tokens := make([]string, 0, 16)
	for _, field := range strings.FieldsFunc(folded, isSeparator) {
		word := splitContraction(field)
		if word == "" || !isAlpha(word) || n.IsStopword(word) {
			continue
		}

		lemma := n.lemmatizer.Lemma(word)
		if n.IsStopword(lemma) {
			continue
		}
		tokens = append(tokens, lemma)
	}

	return tokens
}

// IsStopword consults the snowball English list, then bbalet's longer list.
// Words in the lemma dictionary are review vocabulary and are never dropped by
// the long list.
func (n *Normalizer) IsStopword(word string) bool {
	if _, ok := n.extraStops[word]; ok {
		return true
	}
	if english.IsStopWord(word) {
		return true
	}
	if n.lemmatizer.isLemma(word) {
		return false
	}
	return strings.TrimSpace(stopwords.CleanString(word, stopwordLang, false)) == ""
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isSeparator(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’')
}

func splitContraction(field string) string {
	word := strings.ReplaceAll(field, "’", "'")
	if stem, ok := contractionStems[word]; ok {
		return stem
	}
	for _, suffix := range contractionSuffixes {
		if strings.HasSuffix(word, suffix) {
			word = strings.TrimSuffix(word, suffix)
			break
		}
	}
	return strings.Trim(word, "'")
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
