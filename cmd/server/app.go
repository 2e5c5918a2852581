package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/summa/internal/chunker"
	"github.com/phrazzld/summa/internal/config"
	"github.com/phrazzld/summa/internal/events"
	"github.com/phrazzld/summa/internal/platform/gemini"
	"github.com/phrazzld/summa/internal/platform/groq"
	"github.com/phrazzld/summa/internal/platform/postgres"
	"github.com/phrazzld/summa/internal/progress"
	"github.com/phrazzld/summa/internal/summarizer"
	"github.com/phrazzld/summa/internal/summary"
	"github.com/phrazzld/summa/internal/task"
	"github.com/phrazzld/summa/internal/textsource"
)

// application holds the shared dependencies of the server and ensures they
// are released on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	hub            *progress.Hub
	summaryService *summary.Service
	taskRunner     *task.TaskRunner
}

// newApplication wires stores, the completion backend, the summarization
// pipeline, the task runner and the event emitter. The task runner is built
// but not started; call startTaskRunner for that.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	summaryStore := postgres.NewPostgresSummaryStore(db)
	documentStore := postgres.NewPostgresDocumentStore(db)
	jobStore := postgres.NewPostgresJobStore(db)

	backend, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	summarizerClient, err := summarizer.NewClient(backend, summarizer.RetryPolicy{
		DefaultRetryAfter: time.Duration(cfg.LLM.DefaultRetryAfterSeconds) * time.Second,
		MaxTotalWait:      time.Duration(cfg.LLM.MaxRetryWaitSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer client: %w", err)
	}

	textChunker, err := chunker.New(cfg.LLM.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	resolver, err := textsource.NewResolver(documentStore, textsource.Config{
		Timeout:              time.Duration(cfg.Text.FetchTimeoutSeconds) * time.Second,
		MaxBytes:             cfg.Text.MaxBytes,
		FallbackURLTemplates: cfg.Text.FallbackURLTemplates,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create text resolver: %w", err)
	}

	app.hub = progress.NewHub(cfg.Progress.SubscriberBuffer, logger)

	pipeline, err := summary.NewPipeline(summary.PipelineDeps{
		Summaries:  summaryStore,
		Jobs:       jobStore,
		Text:       resolver,
		Summarizer: summarizerClient,
		Chunker:    textChunker,
		Publisher:  app.hub,
	}, time.Duration(cfg.Task.JobTimeoutMinutes)*time.Minute, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create summarization pipeline: %w", err)
	}

	registry := task.NewRegistry()
	registry.Register(task.TaskTypeDocumentSummarization, summary.NewTaskFactory(pipeline, logger))

	app.taskRunner = task.NewTaskRunner(jobStore, registry, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(
		registry,
		app.taskRunner,
		logger.With("component", "task_factory_event_handler"),
	))

	app.summaryService, err = summary.NewService(summaryStore, jobStore, emitter, pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary service: %w", err)
	}

	logger.Info("application initialized",
		"llm_provider", cfg.LLM.Provider,
		"chunk_size", cfg.LLM.ChunkSize,
		"worker_count", cfg.Task.WorkerCount)
	return app, nil
}

// newCompleter creates the completion backend selected by cfg.Provider.
func newCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (summarizer.Completer, error) {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "groq":
		client, err := groq.NewClient(groq.Config{
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			Timeout:           timeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create groq client: %w", err)
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// startTaskRunner recovers unfinished jobs and starts the workers.
func (app *application) startTaskRunner() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return nil
}

// cleanup releases application resources. Interrupted jobs keep their
// processing status and resume on the next start.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}

// openDatabase connects to the configured database.
func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established", "url", postgres.MaskDatabaseURL(cfg.Database.URL))
	return db, nil
}
