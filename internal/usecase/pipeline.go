package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trendcreate/internal/domain"
	"trendcreate/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.Source
	Fetcher    ports.ContentFetcher
	Store      ports.ArticleStore
	Exporter   ports.Exporter
	Logger     *slog.Logger
	FetchDelay time.Duration
}

// Pipeline sequences extract -> fetch -> dedupe/persist -> export. It owns no
// algorithmic logic of its own; per-item failures are recorded in the report
// and never abort the run.
type Pipeline struct {
	source     ports.Source
	fetcher    ports.ContentFetcher
	store      ports.ArticleStore
	exporter   ports.Exporter
	logger     *slog.Logger
	fetchDelay time.Duration
	sleep      func(time.Duration)
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		exporter:   deps.Exporter,
		logger:     logger,
		fetchDelay: deps.FetchDelay,
		sleep:      time.Sleep,
	}
}

// Run executes one ingestion run and returns its report. Only a completely
// unreachable listing page or an unusable store is fatal.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{StartedAt: time.Now(), DuplicateReasons: map[string]int{}}

	batch, err := p.source.Collect(ctx)
	if err != nil {
		return report, fmt.Errorf("collect candidates: %w", err)
	}
	report.Source = batch.Source
	report.Found = batch.Len()
	p.logger.Info("collected candidates", "source", batch.Source, "count", batch.Len())

	if p.fetcher != nil {
		p.fetchContent(ctx, &batch, &report)
	}

	stats := p.store.SaveBatch(ctx, batch)
	report.Saved = stats.Saved
	report.Duplicates = stats.Duplicates
	report.Errors = stats.Errors
	report.DuplicateReasons = stats.DuplicateReasons

	if p.exporter != nil && batch.Len() > 0 {
		path, err := p.exporter.Export(batch.SortByDate(false))
		if err != nil {
			p.logger.Error("markdown export failed", "error", err)
		} else {
			report.ExportPath = path
		}
	}

	return report, nil
}

// fetchContent enriches candidates one at a time, pausing between fetches to
// stay polite to third-party servers.
func (p *Pipeline) fetchContent(ctx context.Context, batch *domain.Batch, report *domain.RunReport) {
	for i := range batch.Items {
		item := &batch.Items[i]
		p.logger.Info("fetching content", "title", clip(item.Title), "link", item.Link)

		result := p.fetcher.Extract(ctx, item.Link)
		if result.Success {
			item.Content = result.Content
			report.WithContent++
			report.WordsFetched += result.WordCount
			if result.ContentType != "" && !hasTag(item.Tags, result.ContentType) {
				item.Tags = append(item.Tags, result.ContentType)
			}
		} else {
			p.logger.Warn("content fetch unsuccessful",
				"link", item.Link, "status", result.Status, "error", result.Error)
		}

		if p.fetchDelay > 0 && i < len(batch.Items)-1 {
			p.sleep(p.fetchDelay)
		}
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func clip(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
