package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/handlers"
	"github.com/ternarybob/portent/internal/imageboard"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/ternarybob/portent/internal/services/aggregator"
	"github.com/ternarybob/portent/internal/services/chart"
	"github.com/ternarybob/portent/internal/services/classifier"
	"github.com/ternarybob/portent/internal/services/collector"
	"github.com/ternarybob/portent/internal/services/corpus"
	"github.com/ternarybob/portent/internal/services/llm"
	"github.com/ternarybob/portent/internal/services/pipeline"
	"github.com/ternarybob/portent/internal/services/scheduler"
	"github.com/ternarybob/portent/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	Backend          interfaces.ScoringBackend
	Collector        *collector.Service
	CorpusService    *corpus.Service
	Aggregator       *aggregator.Service
	Classifier       *classifier.Service
	Runner           *pipeline.Runner
	SchedulerService interfaces.SchedulerService
	ChartService     *chart.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	PageHandler      *handlers.PageHandler
	SentimentHandler *handlers.SentimentHandler
	SchedulerHandler *handlers.SchedulerHandler
	MCPHandler       *handlers.MCPHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize storage
	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	logger.Info().
		Str("backend", app.Backend.Name()).
		Str("mode", cfg.Classifier.Mode).
		Str("policy", string(app.Classifier.Policy())).
		Strs("boards", cfg.Sources.Boards).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (badger or file)
func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", a.Config.Storage.Type).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the pipeline bottom-up: fetch, corpus, score, aggregate, schedule
func (a *App) initServices() error {
	cfg := a.Config
	snapshots := a.StorageManager.SnapshotStorage()

	// 1. Imageboard client and collector
	client := imageboard.NewClient(
		imageboard.WithBaseURL(cfg.Sources.BaseURL),
		imageboard.WithUserAgent(cfg.Sources.UserAgent),
		imageboard.WithLogger(a.Logger),
		imageboard.WithCatalogDelay(common.ParseDuration(cfg.Sources.CatalogDelay, imageboard.DefaultCatalogDelay)),
		imageboard.WithThreadDelay(common.ParseDuration(cfg.Sources.ThreadDelay, imageboard.DefaultThreadDelay)),
		imageboard.WithRetry(cfg.Sources.MaxRetries, time.Second, 30*time.Second),
		imageboard.WithHTTPClient(&http.Client{
			Timeout: common.ParseDuration(cfg.Sources.RequestTimeout, imageboard.DefaultTimeout),
		}),
	)
	a.Collector = collector.NewService(client, snapshots, cfg.Sources.Boards, cfg.Sources.ThreadLimit, a.Logger)

	// 2. Corpus builder
	a.CorpusService = corpus.NewService(snapshots, cfg.Sources.Boards, cfg.Sources.QuoteThreshold, a.Logger)

	// 3. Scoring backend and prompts
	backend, err := llm.NewBackend(context.Background(), cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scoring backend: %w", err)
	}
	a.Backend = backend

	prompts, err := classifier.LoadPrompts(cfg.Classifier.PromptsFile)
	if err != nil {
		return err
	}

	// 4. Aggregator records history and reasoning for each classified corpus
	a.Aggregator = aggregator.NewService(
		a.StorageManager.HistoryStorage(),
		a.StorageManager.ReasoningStorage(),
		prompts.IntroFor,
		a.Logger,
	)

	a.Classifier = classifier.NewService(backend, a.Aggregator, prompts, classifier.Options{
		Chunks:    cfg.Classifier.Chunks,
		Policy:    models.FallbackPolicy(cfg.Classifier.FallbackPolicy),
		Narrative: cfg.Classifier.Narrative,
	}, a.Logger)

	// 5. Pass runner and scheduler
	a.Runner = pipeline.NewRunner(
		a.Collector,
		a.CorpusService,
		a.Classifier,
		a.StorageManager.ResultStorage(),
		models.ClassificationMode(cfg.Classifier.Mode),
		a.Logger,
	)

	schedulerService, err := scheduler.NewService(a.Runner, &cfg.Scheduler, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	a.SchedulerService = schedulerService

	// 6. Read side
	a.ChartService = chart.NewService(a.StorageManager.HistoryStorage(), time.Local)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager.HistoryStorage(), a.SchedulerService, a.Logger)
	a.PageHandler = handlers.NewPageHandler(a.Config.Server.StaticDir, a.Logger)
	a.SentimentHandler = handlers.NewSentimentHandler(
		a.StorageManager.ResultStorage(),
		a.StorageManager.ReasoningStorage(),
		a.ChartService,
		a.Logger,
	)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.StorageManager.ResultStorage(), a.Logger)
	a.MCPHandler = handlers.NewMCPHandler(
		a.StorageManager.ResultStorage(),
		a.StorageManager.ReasoningStorage(),
		a.ChartService,
		a.Logger,
	)
}

// RunOnce executes a single pass outside the scheduler
func (a *App) RunOnce(ctx context.Context) (*models.AggregateResult, error) {
	return a.Runner.Run(ctx)
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduler service
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Close scoring backend
	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close scoring backend")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
