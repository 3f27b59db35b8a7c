package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendcreate/internal/config"
	"trendcreate/internal/domain"
	"trendcreate/internal/export"
	"trendcreate/internal/infrastructure/fetcher"
	"trendcreate/internal/infrastructure/parser"
	"trendcreate/internal/infrastructure/scheduler"
	"trendcreate/internal/infrastructure/storage"
	"trendcreate/internal/logging"
	"trendcreate/internal/ports"
	"trendcreate/internal/scanner"
	"trendcreate/internal/usecase"
)

// Application wires configuration to use cases and owns component lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.ArticleStore
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance. The returned application holds
// an open database handle; call Close when done.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewTLDRScanner(nil, baseLogger.With("component", "scanner.tldr")))
	registry.Register(parser.NewRSSScanner(baseLogger.With("component", "scanner.rss")))

	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	var contentFetcher ports.ContentFetcher
	if cfg.Fetcher.Enabled {
		contentFetcher = fetcher.New(cfg.Fetcher.Blacklist, baseLogger.With("component", "fetcher"))
	}

	exporter := export.NewMarkdownExporter(cfg.Export.Dir, baseLogger.With("component", "export"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Fetcher:    contentFetcher,
		Store:      store,
		Exporter:   exporter,
		Logger:     baseLogger.With("component", "pipeline"),
		FetchDelay: time.Duration(cfg.Fetcher.DelaySeconds) * time.Second,
	})

	return &Application{cfg: cfg, logger: baseLogger, store: store, pipeline: pipeline}, nil
}

// Run performs a single ingestion run.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// RunDaemon executes the pipeline immediately and then on the given interval,
// blocking until the context is cancelled.
func (a *Application) RunDaemon(ctx context.Context, interval time.Duration) error {
	driver := scheduler.NewIntervalScheduler(interval)
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Stats returns the duplicate-detection diagnostics for the lookback window.
func (a *Application) Stats(ctx context.Context, days int) (domain.DuplicateStats, error) {
	return a.store.DuplicateStats(ctx, days)
}

// Cleanup runs the retention pass; days <= 0 uses the configured horizon.
func (a *Application) Cleanup(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = a.cfg.Retention.Days
	}
	return a.store.CleanOldDuplicates(ctx, days)
}

// Export re-renders recently stored articles to a markdown file and returns
// its path.
func (a *Application) Export(ctx context.Context, days int) (string, error) {
	var source string
	if len(a.cfg.Sources) > 0 {
		source = a.cfg.Sources[0].Name
	}

	items, err := a.store.RecentArticles(ctx, source, days, 50)
	if err != nil {
		return "", fmt.Errorf("load recent articles: %w", err)
	}

	batch := domain.Batch{Items: items, Source: source, CollectedAt: time.Now()}
	exporter := export.NewMarkdownExporter(a.cfg.Export.Dir, a.logger.With("component", "export"))
	return exporter.Export(batch)
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.store.Close()
}
