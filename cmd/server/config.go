package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/transcheck-api/internal/config"
)

// loadAppConfig loads configuration from path, or from ./config.yaml and
// the environment when path is empty.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_running", cfg.Task.MaxRunning)
	slog.Debug("Checker configuration",
		"llm_review_enabled", cfg.Checker.GeminiAPIKey != "",
		"default_model", cfg.Checker.DefaultModel)

	return cfg, nil
}
