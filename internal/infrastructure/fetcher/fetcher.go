package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"trendcreate/internal/domain"
	"trendcreate/internal/ports"
)

const (
	requestTimeout   = 8 * time.Second
	maxRetries       = 2
	retryDelay       = 1 * time.Second
	maxContentLength = 50000
	minContentWords  = 100

	truncationMarker = "... [Content truncated]"
	userAgent        = "TrendCreate/1.0 Content Aggregator (Educational Research)"
)

// Selectors tried most-specific first; the first one whose text clears the
// word threshold wins.
var contentSelectors = []string{
	"article",
	"main",
	".content",
	".post-content",
	".entry-content",
	"#content",
	"body",
}

var (
	spaceRunExpr  = regexp.MustCompile(`[ \t]+`)
	blankRunsExpr = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Fetcher retrieves and extracts the primary textual content of arbitrary
// article URLs, tolerating slow, broken, or adversarial remote servers.
type Fetcher struct {
	client     *http.Client
	blacklist  map[string]struct{}
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

var _ ports.ContentFetcher = (*Fetcher)(nil)

// New builds a fetcher with the bounded timeout/retry budget and the given
// domain blacklist.
func New(blacklist []string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	blocked := make(map[string]struct{}, len(blacklist))
	for _, host := range blacklist {
		blocked[strings.ToLower(strings.TrimSpace(host))] = struct{}{}
	}

	return &Fetcher{
		client:     &http.Client{Timeout: requestTimeout},
		blacklist:  blocked,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Extract fetches the URL and extracts its main content. All outcomes are
// encoded in the result; this never returns a Go error so one hostile remote
// site cannot abort a batch.
func (f *Fetcher) Extract(ctx context.Context, link string) domain.ContentResult {
	result := domain.ContentResult{Status: domain.FetchStatusError}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		result.Error = fmt.Sprintf("invalid url: %s", link)
		return result
	}
	host := strings.ToLower(parsed.Host)
	result.Domain = host

	if _, blocked := f.blacklist[host]; blocked {
		result.Status = domain.FetchStatusBlacklisted
		result.Error = fmt.Sprintf("domain %s is blacklisted (known to be slow/problematic)", host)
		f.logger.Warn("skipping blacklisted domain", "domain", host)
		return result
	}

	doc, attempts, err := f.fetchWithRetries(ctx, link)
	result.Attempts = attempts
	if err != nil {
		result.Status = domain.FetchStatusFetchFailed
		result.Error = err.Error()
		f.logger.Error("failed to fetch page", "url", link, "attempts", attempts, "error", err)
		return result
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		result.MetaDescription = strings.TrimSpace(desc)
	}

	content := extractMainContent(doc)
	if content == "" {
		result.Status = domain.FetchStatusNoContent
		result.Error = "no content found"
		f.logger.Warn("no content extracted", "domain", host)
		return result
	}

	result.Content = cleanContent(content)
	result.WordCount = len(strings.Fields(result.Content))
	result.ContentType = ClassifyContent(host)
	result.Success = true
	result.Status = domain.FetchStatusSuccess
	result.Error = ""

	f.logger.Info("extracted content", "domain", host, "words", result.WordCount, "type", result.ContentType)
	return result
}

// fetchWithRetries applies the uniform retry policy: every failure class,
// including non-2xx statuses, consumes one attempt from the same budget.
func (f *Fetcher) fetchWithRetries(ctx context.Context, link string) (*goquery.Document, int, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(f.retryDelay):
			case <-ctx.Done():
				return nil, attempt - 1, ctx.Err()
			}
		}

		doc, err := f.fetchOnce(ctx, link)
		if err == nil {
			return doc, attempt, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed", "url", link, "attempt", attempt, "error", err)
	}

	return nil, f.maxRetries, fmt.Errorf("all %d attempts failed: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, link string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return doc, nil
}

// extractMainContent strips non-content markup and walks the selector chain,
// accepting the first candidate with substantial text. Falls back to whole
// body text, possibly empty.
func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, iframe").Remove()

	for _, selector := range contentSelectors {
		element := doc.Find(selector).First()
		if element.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(element.Text())
		if len(strings.Fields(text)) > minContentWords {
			return text
		}
	}

	return strings.TrimSpace(doc.Find("body").Text())
}

// cleanContent collapses whitespace runs and blank-line runs, then enforces
// the storage cap with an explicit truncation marker.
func cleanContent(content string) string {
	content = spaceRunExpr.ReplaceAllString(content, " ")
	content = blankRunsExpr.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	if len(content) > maxContentLength {
		// Back up to a rune boundary so the cut never splits a multibyte
		// character.
		cut := maxContentLength
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + truncationMarker
	}

	return content
}

// ClassifyContent is a pure function of domain substring matches.
func ClassifyContent(host string) string {
	switch {
	case strings.Contains(host, "arxiv.org"):
		return domain.ContentTypeAcademicPaper
	case strings.Contains(host, "github.com"):
		return domain.ContentTypeCodeRepository
	case strings.Contains(host, "medium.com"),
		strings.Contains(host, "substack.com"),
		strings.Contains(host, "blog."):
		return domain.ContentTypeBlogPost
	case strings.Contains(host, "venturebeat.com"),
		strings.Contains(host, "tomshardware.com"),
		strings.Contains(host, "techcrunch.com"):
		return domain.ContentTypeNewsArticle
	default:
		return domain.ContentTypeGeneralArticle
	}
}
