package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and strips the resulting markup so
// formatting characters do not reach the scorer.
func ConvertMarkdownToText(input string) string {
	rendered := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plain := html.UnescapeString(tagPattern.ReplaceAllString(string(rendered), " "))

	return strings.Join(strings.Fields(plain), " ")
}

// vaderScorer returns VADER's compound score in [-1, 1].
type vaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func newVaderScorer(Config) (Scorer, error) {
	return &vaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}, nil
}

func (v *vaderScorer) Score(text string) (float64, error) {
	plainText := ConvertMarkdownToText(text)
	return v.analyzer.PolarityScores(plainText).Compound, nil
}
