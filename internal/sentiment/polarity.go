package sentiment

import (
	"fmt"

	"github.com/tsawler/prose/v3"
)

// polarityScorer returns prose's document polarity in [-1, 1]. Only the
// lexicon path of the analyzer is used so scores are reproducible.
type polarityScorer struct {
	analyzer *prose.SentimentAnalyzer
}

func newPolarityScorer(cfg Config) (Scorer, error) {
	analyzerCfg := prose.DefaultSentimentConfig()
	analyzerCfg.UseML = false

	if cfg.LexiconPath == "" {
		return &polarityScorer{analyzer: prose.NewSentimentAnalyzer(prose.English, analyzerCfg)}, nil
	}

	analyzer, err := prose.NewSentimentAnalyzerWithExternal(prose.English, analyzerCfg, cfg.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("[PolarityScorer] failed to load lexicon %s: %w", cfg.LexiconPath, err)
	}
	return &polarityScorer{analyzer: analyzer}, nil
}

func (p *polarityScorer) Score(text string) (float64, error) {
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		return 0, err
	}
	return p.analyzer.AnalyzeDocument(doc).Polarity, nil
}
