package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"trendcreate/internal/domain"
	"trendcreate/internal/scanner"
)

// RSSScanner is a second listing strategy for sources that publish a feed
// instead of a scrapeable page. It produces the same candidate shape as the
// TLDR scanner so the rest of the pipeline cannot tell them apart.
type RSSScanner struct {
	parser      *gofeed.Parser
	logger      *slog.Logger
	maxArticles int
	now         func() time.Time
}

// NewRSSScanner builds a feed-backed scanner with the shared per-scan cap.
func NewRSSScanner(logger *slog.Logger) *RSSScanner {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &RSSScanner{
		parser:      parser,
		logger:      logger,
		maxArticles: maxArticlesPerScan,
		now:         time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan parses the feed URL and maps items into candidates.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	feed, err := r.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	candidates := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" || len(item.Title) < minTitleLength {
			continue
		}

		publishedAt := r.now()
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		var imageURL string
		if item.Image != nil {
			imageURL = item.Image.URL
		}

		summary := item.Description
		if summary == "" {
			summary = item.Title
		}

		candidates = append(candidates, domain.Article{
			Title:         item.Title,
			Summary:       summary,
			Link:          item.Link,
			Source:        req.SourceName,
			PublishedDate: publishedAt,
			Tags:          domain.ExtractTags(item.Title),
			ImageURL:      imageURL,
		})

		if len(candidates) >= r.maxArticles {
			break
		}
	}

	r.logger.Info("extracted feed candidates", "feed", req.URL, "count", len(candidates))
	return candidates, nil
}
