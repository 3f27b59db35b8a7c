package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trendcreate/internal/domain"
	"trendcreate/internal/ports"
)

const exportFileName = "ai_news.md"

// MarkdownExporter renders a batch as a per-run markdown document under
// <root>/<date>-tldr-ai-news/ai_news.md. It is a pure projection of the
// batch; nothing feeds back into the pipeline.
type MarkdownExporter struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Exporter = (*MarkdownExporter)(nil)

// NewMarkdownExporter writes exports under the given root directory.
func NewMarkdownExporter(root string, logger *slog.Logger) *MarkdownExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkdownExporter{root: root, logger: logger, now: time.Now}
}

// Export renders the batch and returns the written file path. Directories
// are created as needed.
func (e *MarkdownExporter) Export(batch domain.Batch) (string, error) {
	today := e.now().Format("2006-01-02")
	dir := filepath.Join(e.root, fmt.Sprintf("%s-tldr-ai-news", today))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, exportFileName)
	if err := os.WriteFile(path, []byte(e.render(batch, today)), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	e.logger.Info("exported articles to markdown", "count", len(batch.Items), "path", path)
	return path, nil
}

func (e *MarkdownExporter) render(batch domain.Batch, today string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# TLDR AI News - %s\n\n", today)
	fmt.Fprintf(&b, "*Aggregated from %s newsletter*\n\n", batch.Source)
	fmt.Fprintf(&b, "**Total Articles:** %d\n\n", len(batch.Items))

	for i, item := range batch.Items {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, item.Title)
		if item.ReadTime != "" {
			fmt.Fprintf(&b, "**Read Time:** %s\n", item.ReadTime)
		}
		fmt.Fprintf(&b, "**Published:** %s\n", item.PublishedDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "**Link:** [%s](%s)\n\n", domain.DomainOf(item.Link), item.Link)

		if len(item.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(item.Tags, ", "))
		}
		if item.ImageURL != "" {
			fmt.Fprintf(&b, "![Article Image](%s)\n\n", item.ImageURL)
		}

		b.WriteString("---\n\n")
	}

	return b.String()
}
