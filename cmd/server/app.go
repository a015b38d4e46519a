package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/phrazzld/transcheck-api/internal/config"
	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/phrazzld/transcheck-api/internal/inspection"
	"github.com/phrazzld/transcheck-api/internal/platform/filestore"
	"github.com/phrazzld/transcheck-api/internal/platform/gemini"
	"github.com/phrazzld/transcheck-api/internal/service"
	"github.com/phrazzld/transcheck-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the shared application dependencies and owns their
// shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	metricsRegistry *prometheus.Registry
	taskMetrics     *task.Metrics

	results    *filestore.ResultStore
	glossaries *glossary.Loader
	checker    *inspection.Checker

	taskRegistry *task.Registry
	taskRunner   *task.Runner

	inspectionService service.InspectionService
}

// newApplication wires every component from cfg. The LLM reviewer is only
// created when an API key is configured.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:          cfg,
		logger:          logger,
		metricsRegistry: prometheus.NewRegistry(),
	}

	app.metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.taskMetrics = task.MustNewMetrics(app.metricsRegistry)

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	var err error
	app.results, err = filestore.NewResultStore(cfg.Storage.ResultDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Checker.HTTPTimeoutSeconds) * time.Second}
	app.glossaries, err = glossary.NewLoader(httpClient, cfg.Checker.GlossaryCacheSize,
		time.Duration(cfg.Checker.GlossaryCacheTTLSeconds)*time.Second, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize glossary loader: %w", err)
	}

	var reviewer inspection.Reviewer
	if cfg.Checker.GeminiAPIKey != "" {
		r, err := gemini.NewReviewer(ctx, logger, cfg.Checker)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM reviewer: %w", err)
		}
		reviewer = r
		logger.Info("LLM reviewer initialized", "default_model", cfg.Checker.DefaultModel)
	} else {
		logger.Warn("no Gemini API key configured, only glossary checks will run")
	}

	app.checker, err = inspection.New(app.glossaries, reviewer,
		inspection.Config{DefaultGlossaryURL: cfg.Checker.DefaultGlossaryURL}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize checker: %w", err)
	}

	app.taskRegistry = task.NewRegistry(logger)
	app.taskRunner, err = task.NewRunner(app.taskRegistry, app.results, app.checker, task.RunnerConfig{
		MaxRunning:   cfg.Task.MaxRunning,
		DownloadPath: task.DownloadPath,
	}, app.taskMetrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task runner: %w", err)
	}

	app.inspectionService, err = service.NewInspectionService(
		app.taskRegistry,
		app.taskRunner,
		app.results,
		app.glossaries,
		app.taskMetrics,
		service.InspectionServiceConfig{
			UploadDir:          cfg.Storage.UploadDir,
			DefaultGlossaryURL: cfg.Checker.DefaultGlossaryURL,
			DownloadPath:       task.DownloadPath,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inspection service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task runner, cancelling runs still going at the
// deadline so their subscribers see an error event.
func (app *application) cleanup(ctx context.Context) {
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(ctx); err != nil {
			app.logger.Warn("task runner stopped with running tasks cancelled", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}

func (app *application) shutdownTimeout() time.Duration {
	return time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
}

func (app *application) heartbeat() time.Duration {
	return time.Duration(app.config.Task.StreamHeartbeatSeconds) * time.Second
}
