package domain

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultTag is attached to every article regardless of what the keyword
// scan finds in its title.
const DefaultTag = "AI"

var (
	readTimeExpr   = regexp.MustCompile(`\((\d+\s+minute\s+read)\)`)
	readTimeStrip  = regexp.MustCompile(`(?i)\s*\(\d+\s+minute\s+read\)\s*`)
	whitespaceExpr = regexp.MustCompile(`\s+`)
)

// tagKeywords is the fixed vocabulary scanned against article titles.
var tagKeywords = []string{
	"artificial intelligence", "machine learning", "ml", "deep learning",
	"neural network", "chatgpt", "gpt", "llm", "large language model",
	"openai", "anthropic", "google", "microsoft", "meta", "nvidia",
	"automation", "robotics", "computer vision", "nlp",
	"generative ai", "stable diffusion", "midjourney", "dall-e",
	"transformer", "bert", "claude", "gemini", "cursor",
}

// Article is the unit of content moving through the pipeline. Candidates
// coming out of a scanner carry no hashes; TitleHash, ContentHash and Domain
// are computed by Finalize at persist time and must never diverge from
// Title/Content/Link afterwards.
type Article struct {
	ID            string
	Title         string `validate:"required"`
	Summary       string
	Link          string `validate:"required,url"`
	Source        string `validate:"required"`
	PublishedDate time.Time
	Content       string
	Tags          []string
	ImageURL      string
	ReadTime      string

	TitleHash   string
	ContentHash string
	Domain      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Finalize computes the derived identity fields immediately before a persist
// attempt. The stored Domain column is strictly a cache of DomainOf(Link).
func (a *Article) Finalize(now time.Time) {
	a.TitleHash = HashTitle(a.Title)
	a.ContentHash = HashContent(a.Content)
	a.Domain = DomainOf(a.Link)
	if len(a.Tags) == 0 {
		a.Tags = []string{DefaultTag}
	}
	if a.PublishedDate.IsZero() {
		a.PublishedDate = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
}

// NormalizeTitle strips a trailing "(N minute read)" annotation, collapses
// whitespace and lowercases, so near-identical titles hash identically.
func NormalizeTitle(title string) string {
	normalized := readTimeStrip.ReplaceAllString(title, " ")
	normalized = whitespaceExpr.ReplaceAllString(strings.TrimSpace(normalized), " ")
	return strings.ToLower(normalized)
}

// HashTitle returns the hex MD5 digest of the normalized title.
func HashTitle(title string) string {
	sum := md5.Sum([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(sum[:])
}

// HashContent returns the hex MD5 digest of whitespace-collapsed, lowercased
// content, or the empty string when there is no content.
func HashContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	normalized := whitespaceExpr.ReplaceAllString(strings.TrimSpace(content), " ")
	sum := md5.Sum([]byte(strings.ToLower(normalized)))
	return hex.EncodeToString(sum[:])
}

// DomainOf extracts the lowercased host portion of a link.
func DomainOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// SplitReadTime extracts a trailing "(N minute read)" annotation from a title
// and returns the stripped title together with the annotation text.
func SplitReadTime(title string) (string, string) {
	match := readTimeExpr.FindStringSubmatch(title)
	if match == nil {
		return strings.TrimSpace(title), ""
	}
	stripped := readTimeStrip.ReplaceAllString(title, " ")
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(stripped, " ")), match[1]
}

// ExtractTags scans text against the keyword vocabulary with case-insensitive
// substring matching. The default tag always comes first.
func ExtractTags(text string) []string {
	tags := []string{DefaultTag}
	seen := map[string]struct{}{strings.ToLower(DefaultTag): {}}

	lower := strings.ToLower(text)
	for _, keyword := range tagKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		tags = append(tags, titleCase(keyword))
	}

	return tags
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// Batch is an ordered collection of articles from one ingestion run.
type Batch struct {
	Items       []Article
	Source      string
	CollectedAt time.Time
}

// Len reports the number of articles in the batch.
func (b Batch) Len() int {
	return len(b.Items)
}

// FilterByTags returns a derived batch containing only articles carrying at
// least one of the given tags (case-insensitive).
func (b Batch) FilterByTags(tags []string) Batch {
	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[strings.ToLower(tag)] = struct{}{}
	}

	filtered := make([]Article, 0, len(b.Items))
	for _, item := range b.Items {
		for _, tag := range item.Tags {
			if _, ok := wanted[strings.ToLower(tag)]; ok {
				filtered = append(filtered, item)
				break
			}
		}
	}

	return Batch{Items: filtered, Source: b.Source, CollectedAt: b.CollectedAt}
}

// SortByDate returns a derived batch sorted by publication date, descending
// by default. The sort is stable so same-day articles keep listing order.
func (b Batch) SortByDate(ascending bool) Batch {
	sorted := make([]Article, len(b.Items))
	copy(sorted, b.Items)

	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return sorted[i].PublishedDate.Before(sorted[j].PublishedDate)
		}
		return sorted[i].PublishedDate.After(sorted[j].PublishedDate)
	})

	return Batch{Items: sorted, Source: b.Source, CollectedAt: b.CollectedAt}
}
