package ports

import (
	"context"
	"time"

	"trendcreate/internal/domain"
)

// Source collects candidate articles for one ingestion run.
type Source interface {
	Collect(ctx context.Context) (domain.Batch, error)
}

// ContentFetcher retrieves the main textual content of an article URL.
// Per-URL failures are encoded in the result, never returned as errors.
type ContentFetcher interface {
	Extract(ctx context.Context, link string) domain.ContentResult
}

// ArticleStore persists articles with layered duplicate detection.
type ArticleStore interface {
	IsDuplicate(ctx context.Context, article domain.Article) (bool, string)
	SaveArticle(ctx context.Context, article *domain.Article) domain.SaveResult
	SaveBatch(ctx context.Context, batch domain.Batch) domain.SaveStats
	RecentArticles(ctx context.Context, source string, days, limit int) ([]domain.Article, error)
	CleanOldDuplicates(ctx context.Context, olderThanDays int) (int, error)
	DuplicateStats(ctx context.Context, days int) (domain.DuplicateStats, error)
	Sources(ctx context.Context) ([]string, error)
	Close() error
}

// Exporter renders a batch into a durable artifact and returns its path.
type Exporter interface {
	Export(batch domain.Batch) (string, error)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
