package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendcreate/internal/domain"
	"trendcreate/internal/scanner"
)

const (
	maxArticlesPerScan = 20
	minTitleLength     = 10
	defaultSection     = "ai"
	userAgent          = "TrendCreate/1.0 (Content Aggregation Tool)"
)

var (
	containerClassExpr = regexp.MustCompile(`w-full.*min-\[480px\]:w-auto`)
	dateLabelClassExpr = regexp.MustCompile(`text-xs.*tracking-wider`)
	dateExpr           = regexp.MustCompile(`([A-Za-z]{3})\s+(\d{1,2})`)
	campaignMarker     = "utm_source=tldrai"
)

// TLDRScanner extracts article candidates from the AI section of the TLDR
// newsletter front page. The selector heuristics are coupled to the site's
// current markup; everything behind Scan is replaceable without touching the
// rest of the pipeline.
type TLDRScanner struct {
	client      *http.Client
	logger      *slog.Logger
	maxArticles int
	now         func() time.Time
}

// NewTLDRScanner wires an HTTP client; a nil client gets a 30s timeout.
func NewTLDRScanner(client *http.Client, logger *slog.Logger) *TLDRScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TLDRScanner{
		client:      client,
		logger:      logger,
		maxArticles: maxArticlesPerScan,
		now:         time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (t *TLDRScanner) Name() string {
	return "tldr"
}

// Scan fetches the listing page and returns candidates from the requested
// section. A missing section yields zero candidates, not an error; the
// newsletter may have renamed or emptied it that day.
func (t *TLDRScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	doc, err := t.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}

	section := req.Section
	if section == "" {
		section = defaultSection
	}

	anchor := doc.Find("div#" + section)
	if anchor.Length() == 0 {
		t.logger.Warn("section not found on listing page", "section", section)
		return nil, nil
	}

	candidates := t.extractCandidates(anchor, req)
	t.logger.Info("extracted candidates", "section", section, "count", len(candidates))
	return candidates, nil
}

func (t *TLDRScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractCandidates walks plausible article containers inside the section.
// A malformed container is skipped, never fatal for the batch.
func (t *TLDRScanner) extractCandidates(section *goquery.Selection, req scanner.Request) []domain.Article {
	var candidates []domain.Article

	containers := section.Find("div").FilterFunction(func(i int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return containerClassExpr.MatchString(class)
	})

	containers.EachWithBreak(func(i int, container *goquery.Selection) bool {
		candidate, ok := t.extractSingle(container, req)
		if !ok {
			return true
		}
		candidates = append(candidates, candidate)
		return len(candidates) < t.maxArticles
	})

	return candidates
}

func (t *TLDRScanner) extractSingle(container *goquery.Selection, req scanner.Request) (domain.Article, bool) {
	link := container.Find(`a[target="_blank"]`).FilterFunction(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return strings.Contains(href, campaignMarker)
	}).First()
	if link.Length() == 0 {
		return domain.Article{}, false
	}

	href, _ := link.Attr("href")
	if href == "" {
		return domain.Article{}, false
	}
	href = t.absoluteURL(req.URL, href)

	title := strings.TrimSpace(container.Find("h3").First().Text())
	if len(title) < minTitleLength {
		return domain.Article{}, false
	}

	publishedAt := t.now()
	dateLabel := container.Find("span").FilterFunction(func(i int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return dateLabelClassExpr.MatchString(class)
	}).First()
	if dateLabel.Length() > 0 {
		publishedAt = t.parseDate(strings.TrimSpace(dateLabel.Text()))
	}

	imageURL, _ := container.Find("img").First().Attr("src")

	title, readTime := domain.SplitReadTime(title)

	return domain.Article{
		Title:         title,
		Summary:       title,
		Link:          href,
		Source:        req.SourceName,
		PublishedDate: publishedAt,
		Tags:          domain.ExtractTags(title),
		ImageURL:      imageURL,
		ReadTime:      readTime,
	}, true
}

// parseDate handles the compact "Jul 25 | AI" label, assuming the current
// year and falling back to now when the label is unreadable.
func (t *TLDRScanner) parseDate(label string) time.Time {
	datePart := strings.TrimSpace(strings.SplitN(label, "|", 2)[0])

	match := dateExpr.FindStringSubmatch(datePart)
	if match == nil {
		t.logger.Warn("unparseable date label, using current date", "label", label)
		return t.now()
	}

	month, err := time.Parse("Jan", match[1])
	if err != nil {
		t.logger.Warn("unparseable month in date label", "label", label)
		return t.now()
	}
	day, err := strconv.Atoi(match[2])
	if err != nil {
		return t.now()
	}

	now := t.now()
	return time.Date(now.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
}

func (t *TLDRScanner) absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
