// Package app assembles configuration, adapters and use cases into a
// runnable application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/artifacts"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/firecrawl"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/provider"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/storage"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/wordpress"
	"github.com/Jenny-Gump/content-generator/internal/llm"
	"github.com/Jenny-Gump/content-generator/internal/logging"
	"github.com/Jenny-Gump/content-generator/internal/ports"
	"github.com/Jenny-Gump/content-generator/internal/usage"
	"github.com/Jenny-Gump/content-generator/internal/usecase"
)

// Options select optional collaborators at startup.
type Options struct {
	// Publish enables the CMS publication stage when WordPress is configured.
	Publish bool
}

// Application wires configs to use cases. Per-run state (tracker, artifact
// store, invoker) is created fresh inside RunTopic so batch topics stay
// isolated.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	scraper    ports.SearchScraper
	registry   *llm.Registry
	publisher  ports.Publisher
	repository ports.RunRepository
	db         *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scraper, err := firecrawl.NewClient(cfg.Firecrawl, logging.Component(baseLogger, "firecrawl"))
	if err != nil {
		return nil, err
	}

	registry := llm.NewRegistry(cfg.Providers, cfg.DefaultProvider, logging.Component(baseLogger, "llm"))
	registry.RegisterFactory("deepseek", func(spec config.ProviderConfig, apiKey string) ports.ChatProvider {
		return provider.NewOpenAIClient(spec.Name, spec.BaseURL, apiKey)
	})
	registry.RegisterFactory("openrouter", func(_ config.ProviderConfig, apiKey string) ports.ChatProvider {
		return provider.NewOpenRouterClient(apiKey)
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		scraper:  scraper,
		registry: registry,
	}

	if opts.Publish {
		a.publisher = wordpress.NewPublisher(cfg.WordPress, logging.Component(baseLogger, "wordpress"))
		if a.publisher == nil {
			baseLogger.Warn("publication requested but wordpress is not configured, drafts stay local")
		}
	}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		a.repository = storage.NewPostgresRepository(db)
	}

	return a, nil
}

// RunTopic executes the full pipeline for one topic with its own tracker,
// artifact tree and invoker.
func (a *Application) RunTopic(ctx context.Context, topic string) (usecase.RunResult, error) {
	tracker := usage.NewTracker(topic)
	store := artifacts.NewStore(a.cfg.Output.Dir, topic)
	invoker := llm.NewInvoker(a.registry, tracker, store, a.cfg.Retry, logging.Component(a.logger, "invoker"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Scraper:    a.scraper,
		Invoker:    invoker,
		Artifacts:  store,
		Publisher:  a.publisher,
		Repository: a.repository,
		Tracker:    tracker,
		Config:     a.cfg,
		Logger:     logging.Component(a.logger, "pipeline"),
	})
	return pipeline.Run(ctx, topic)
}

// RunBatch processes topics sequentially with resumable progress.
func (a *Application) RunBatch(ctx context.Context, topics []string, batchName string, resume bool) (usecase.BatchProgress, error) {
	batch := usecase.NewBatch(a.RunTopic, a.repository, a.cfg.Batch, logging.Component(a.logger, "batch"))
	return batch.Run(ctx, topics, batchName, resume)
}

// Close releases long-lived resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
