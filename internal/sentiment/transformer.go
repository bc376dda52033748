package sentiment

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/reviewflow/internal/models"
)

const (
	defaultTransformerModel = "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english"
	transformerModelDir     = "./models"
)

// transformerScorer runs a text classification model and returns
// P(positive) - P(negative).
type transformerScorer struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

func newTransformerScorer(cfg Config) (Scorer, error) {
	modelPath, err := resolveModelPath(cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reviewSentimentPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to initialize text classification pipeline: %w", err)
	}

	slog.Info("[TransformerScorer] Pipeline ready", slog.String("path", modelPath))
	return &transformerScorer{session: session, pipeline: pipeline}, nil
}

func resolveModelPath(cfg Config) (string, error) {
	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err == nil {
			return cfg.ModelPath, nil
		}
		if cfg.ModelName == "" {
			return "", &models.ConfigurationError{Setting: "model_path", Value: cfg.ModelPath, Reason: "model directory does not exist"}
		}
	}

	name := cfg.ModelName
	if name == "" {
		name = defaultTransformerModel
	}

	if err := os.MkdirAll(transformerModelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	slog.Info("[TransformerScorer] Model not found, downloading...", slog.String("model", name))
	path, err := hugot.DownloadModel(name, transformerModelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", &models.ConfigurationError{Setting: "model_name", Value: name, Reason: err.Error()}
	}
	return path, nil
}

func (t *transformerScorer) Score(text string) (float64, error) {
	output, err := t.pipeline.RunPipeline([]string{text})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrScoringFailure, err)
	}
	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return 0, fmt.Errorf("%w: empty classification output", models.ErrScoringFailure)
	}

	var score float64
	for _, class := range output.ClassificationOutputs[0] {
		switch strings.ToUpper(class.Label) {
		case "POSITIVE", "POS", "LABEL_1":
			score += float64(class.Score)
		case "NEGATIVE", "NEG", "LABEL_0":
			score -= float64(class.Score)
		}
	}
	return score, nil
}

func (t *transformerScorer) Close() error {
	return t.session.Destroy()
}
