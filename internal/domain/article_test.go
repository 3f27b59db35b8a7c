package domain

import (
	"testing"
	"time"
)

func TestNormalizeTitleRoundTrip(t *testing.T) {
	t.Parallel()

	base := "OpenAI Ships a New Reasoning Model"
	variants := []string{
		base,
		base + " (13 minute read)",
		base + "   (13 Minute Read)",
		"  OpenAI   Ships a New\tReasoning Model (2 minute read) ",
	}

	want := NormalizeTitle(base)
	for _, variant := range variants {
		if got := NormalizeTitle(variant); got != want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", variant, got, want)
		}
	}
}

func TestHashTitleIgnoresReadTime(t *testing.T) {
	t.Parallel()

	a := HashTitle("Anthropic Announces Claude Updates")
	b := HashTitle("Anthropic Announces Claude Updates (5 minute read)")
	if a != b {
		t.Fatalf("expected identical hashes, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char hex digest, got %q", a)
	}
}

func TestHashContentEmpty(t *testing.T) {
	t.Parallel()

	if got := HashContent("   "); got != "" {
		t.Fatalf("expected empty hash for blank content, got %q", got)
	}
	if HashContent("Some body text") == "" {
		t.Fatal("expected non-empty hash for real content")
	}
}

func TestSplitReadTime(t *testing.T) {
	t.Parallel()

	title, readTime := SplitReadTime("Robots Learn to Fold Laundry (13 minute read)")
	if title != "Robots Learn to Fold Laundry" {
		t.Fatalf("unexpected title: %q", title)
	}
	if readTime != "13 minute read" {
		t.Fatalf("unexpected read time: %q", readTime)
	}

	title, readTime = SplitReadTime("No Annotation Here")
	if title != "No Annotation Here" || readTime != "" {
		t.Fatalf("unexpected split: %q / %q", title, readTime)
	}
}

func TestDomainOf(t *testing.T) {
	t.Parallel()

	if got := DomainOf("https://Blog.Example.com/post?utm_source=tldrai"); got != "blog.example.com" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := DomainOf("://bad"); got != "" {
		t.Fatalf("expected empty domain for invalid url, got %q", got)
	}
}

func TestExtractTags(t *testing.T) {
	t.Parallel()

	tags := ExtractTags("OpenAI and Anthropic race on LLM benchmarks")

	if tags[0] != DefaultTag {
		t.Fatalf("expected %s first, got %v", DefaultTag, tags)
	}

	want := map[string]bool{"Openai": false, "Anthropic": false, "Llm": false}
	for _, tag := range tags {
		if _, ok := want[tag]; ok {
			want[tag] = true
		}
	}
	for tag, found := range want {
		if !found {
			t.Fatalf("expected tag %s in %v", tag, tags)
		}
	}
}

func TestExtractTagsShortKeyword(t *testing.T) {
	t.Parallel()

	tags := ExtractTags("New ML benchmark ships")

	found := false
	for _, tag := range tags {
		if tag == "Ml" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Ml tag, got %v", tags)
	}
}

func TestExtractTagsAlwaysHasDefault(t *testing.T) {
	t.Parallel()

	tags := ExtractTags("A title about nothing in particular")
	if len(tags) != 1 || tags[0] != DefaultTag {
		t.Fatalf("expected only the default tag, got %v", tags)
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	article := Article{
		Title: "Gemini Gets Vision Support",
		Link:  "https://Example.com/gemini",
	}

	article.Finalize(now)

	if article.TitleHash == "" {
		t.Fatal("expected title hash to be set")
	}
	if article.ContentHash != "" {
		t.Fatalf("expected empty content hash, got %q", article.ContentHash)
	}
	if article.Domain != "example.com" {
		t.Fatalf("unexpected domain: %q", article.Domain)
	}
	if len(article.Tags) != 1 || article.Tags[0] != DefaultTag {
		t.Fatalf("expected default tag, got %v", article.Tags)
	}
	if !article.PublishedDate.Equal(now) {
		t.Fatalf("expected published date defaulted to now, got %v", article.PublishedDate)
	}
	if article.Domain != DomainOf(article.Link) {
		t.Fatal("stored domain diverged from derived domain")
	}
}

func TestBatchSortByDate(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC) }
	batch := Batch{
		Items: []Article{
			{Title: "oldest", PublishedDate: day(1)},
			{Title: "newest", PublishedDate: day(20)},
			{Title: "middle", PublishedDate: day(10)},
		},
	}

	sorted := batch.SortByDate(false)
	if sorted.Items[0].Title != "newest" || sorted.Items[2].Title != "oldest" {
		t.Fatalf("unexpected descending order: %v", sorted.Items)
	}
	if batch.Items[0].Title != "oldest" {
		t.Fatal("SortByDate mutated the original batch")
	}

	ascending := batch.SortByDate(true)
	if ascending.Items[0].Title != "oldest" {
		t.Fatalf("unexpected ascending order: %v", ascending.Items)
	}
}

func TestBatchFilterByTags(t *testing.T) {
	t.Parallel()

	batch := Batch{
		Items: []Article{
			{Title: "a", Tags: []string{"AI", "Robotics"}},
			{Title: "b", Tags: []string{"AI"}},
			{Title: "c", Tags: []string{"Nvidia"}},
		},
	}

	filtered := batch.FilterByTags([]string{"robotics", "nvidia"})
	if len(filtered.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(filtered.Items))
	}
	if filtered.Items[0].Title != "a" || filtered.Items[1].Title != "c" {
		t.Fatalf("unexpected filter result: %v", filtered.Items)
	}
}
