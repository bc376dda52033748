package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/spacesedan/reviewflow/internal/models"
)

// InitLogger installs the colored default handler at the given level.
func InitLogger(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})

	slog.SetDefault(slog.New(handler))
	return nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, &models.ConfigurationError{Setting: "log_level", Value: level, Reason: "unknown log level"}
	}
}
