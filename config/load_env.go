package config

import (
	"log/slog"

	"github.com/subosito/gotenv"
)

// LoadEnv loads config/envs/.env.<env> into the process environment. Variables
// already set in the environment win over the file.
func LoadEnv(env string) {
	if env == "" {
		env = "dev"
	}
	envFile := "config/envs/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("[Config] No .env file found, using OS environment", slog.String("file", envFile))
		return
	}
	slog.Info("[Config] Loaded environment file", slog.String("file", envFile))
}
