package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"trendcreate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testArticle(title, link string) domain.Article {
	return domain.Article{
		Title:         title,
		Summary:       title,
		Link:          link,
		Source:        "TLDR AI",
		PublishedDate: time.Now(),
		Tags:          []string{"AI"},
	}
}

func clearCaches(store *Store) {
	store.mu.Lock()
	store.linkCache = map[string]struct{}{}
	store.titleHashCache = map[string]struct{}{}
	store.mu.Unlock()
}

func TestSaveArticle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	article := testArticle("Claude Gains a New Tool Use API", "https://example.com/claude-tools")
	result := store.SaveArticle(ctx, &article)

	if result.Outcome != domain.OutcomeSaved {
		t.Fatalf("expected saved, got %q (%v)", result.Status, result.Err)
	}
	if article.TitleHash == "" || article.Domain != "example.com" {
		t.Fatalf("expected finalized fields, got hash=%q domain=%q", article.TitleHash, article.Domain)
	}
	if article.ID == "" {
		t.Fatal("expected assigned row id")
	}
}

func TestDuplicateReasonPrecedence(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	article := testArticle("Robots Fold Laundry at Scale", "https://example.com/laundry")
	if result := store.SaveArticle(ctx, &article); result.Outcome != domain.OutcomeSaved {
		t.Fatalf("seed save failed: %q", result.Status)
	}

	// Link AND title hash are both cached; the link check must win.
	dup, reason := store.IsDuplicate(ctx, testArticle("Robots Fold Laundry at Scale", "https://example.com/laundry"))
	if !dup || reason != domain.ReasonExactLinkMatch {
		t.Fatalf("expected exact_link_match, got dup=%v reason=%q", dup, reason)
	}
}

func TestSimilarTitleMatch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	article := testArticle("Gemini Adds Video Understanding", "https://example.com/gemini-video")
	if result := store.SaveArticle(ctx, &article); result.Outcome != domain.OutcomeSaved {
		t.Fatalf("seed save failed: %q", result.Status)
	}

	// Different link, same normalized title (read-time suffix ignored).
	candidate := testArticle("Gemini Adds Video Understanding (4 minute read)", "https://mirror.example.net/gemini")
	dup, reason := store.IsDuplicate(ctx, candidate)
	if !dup || reason != domain.ReasonSimilarTitleMatch {
		t.Fatalf("expected similar_title_match, got dup=%v reason=%q", dup, reason)
	}
}

func TestDatabaseFallbackChecks(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	article := testArticle("Open Models Close the Gap", "https://example.com/open-models")
	if result := store.SaveArticle(ctx, &article); result.Outcome != domain.OutcomeSaved {
		t.Fatalf("seed save failed: %q", result.Status)
	}

	// Cold caches force the durable-store checks to do the work.
	clearCaches(store)

	// Same domain + same title hash within the window, different link.
	candidate := testArticle("Open Models Close the Gap", "https://example.com/open-models-repost")
	dup, reason := store.IsDuplicate(ctx, candidate)
	if !dup || reason != domain.ReasonSimilarContentDomain {
		t.Fatalf("expected similar_content_same_domain, got dup=%v reason=%q", dup, reason)
	}

	// Different title but identical link: only the exact-link fallback hits.
	candidate = testArticle("A Completely Different Headline", "https://example.com/open-models")
	dup, reason = store.IsDuplicate(ctx, candidate)
	if !dup || reason != domain.ReasonExactLinkDatabase {
		t.Fatalf("expected exact_link_database, got dup=%v reason=%q", dup, reason)
	}
}

func TestCacheWarmupOnReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	article := testArticle("Warm Caches Survive Restarts", "https://example.com/warm")
	if result := store.SaveArticle(context.Background(), &article); result.Outcome != domain.OutcomeSaved {
		t.Fatalf("seed save failed: %q", result.Status)
	}
	store.Close()

	reopened, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	dup, reason := reopened.IsDuplicate(context.Background(), testArticle("Warm Caches Survive Restarts", "https://example.com/warm"))
	if !dup || reason != domain.ReasonExactLinkMatch {
		t.Fatalf("expected warmed cache hit, got dup=%v reason=%q", dup, reason)
	}
}

func TestSaveBatchIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	makeBatch := func() domain.Batch {
		return domain.Batch{
			Source:      "TLDR AI",
			CollectedAt: time.Now(),
			Items: []domain.Article{
				testArticle("First Unique Story of the Day", "https://example.com/one"),
				testArticle("Second Unique Story of the Day", "https://example.org/two"),
			},
		}
	}

	first := store.SaveBatch(ctx, makeBatch())
	if first.Saved != 2 || first.Duplicates != 0 || first.Errors != 0 {
		t.Fatalf("unexpected first stats: %+v", first)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected per-item statuses, got %d", len(first.Items))
	}

	second := store.SaveBatch(ctx, makeBatch())
	if second.Saved != 0 || second.Duplicates != 2 {
		t.Fatalf("re-ingestion must dedupe everything, got %+v", second)
	}
	for reason := range second.DuplicateReasons {
		if reason != domain.ReasonExactLinkMatch && reason != domain.ReasonSimilarTitleMatch {
			t.Fatalf("unexpected duplicate reason on re-ingestion: %q", reason)
		}
	}
}

func TestSaveArticleValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	article := testArticle("A Story With a Broken Link Field", "not a url at all")
	result := store.SaveArticle(context.Background(), &article)

	if result.Outcome != domain.OutcomeError || result.Status != "error_validation" {
		t.Fatalf("expected validation error, got %q", result.Status)
	}
}

func TestUniqueViolationDetection(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	insert := func() error {
		_, err := store.db.Exec(
			`INSERT INTO news_items(id, title, summary, link, source, published_date, content, tags,
			 image_url, read_time, title_hash, content_hash, domain, created_at, updated_at)
			 VALUES(?, ?, '', ?, 'TLDR AI', ?, '', 'AI', '', '', ?, '', 'example.com', ?, ?)`,
			uuid.NewString(), "Same Link Twice", "https://example.com/race",
			time.Now(), domain.HashTitle("Same Link Twice"), time.Now(), time.Now(),
		)
		return err
	}

	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert()
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("isUniqueViolation missed: %v", err)
	}
}

func TestCleanOldDuplicates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	titleHash := domain.HashTitle("An Ancient Repeated Story")
	insertAged := func(link string, createdAt time.Time) string {
		id := uuid.NewString()
		_, err := store.db.Exec(
			`INSERT INTO news_items(id, title, summary, link, source, published_date, content, tags,
			 image_url, read_time, title_hash, content_hash, domain, created_at, updated_at)
			 VALUES(?, 'An Ancient Repeated Story', '', ?, 'TLDR AI', ?, '', 'AI', '', '', ?, '', 'example.com', ?, ?)`,
			id, link, createdAt, titleHash, createdAt, createdAt,
		)
		if err != nil {
			t.Fatalf("insert aged row: %v", err)
		}
		return id
	}

	old := time.Now().AddDate(0, 0, -120)
	insertAged("https://example.com/ancient-1", old)
	insertAged("https://example.com/ancient-2", old.Add(24*time.Hour))
	newestID := insertAged("https://example.com/ancient-3", old.Add(48*time.Hour))

	removed, err := store.CleanOldDuplicates(ctx, 90)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	var survivors []string
	if err := store.db.Select(&survivors, "SELECT id FROM news_items WHERE title_hash = ?", titleHash); err != nil {
		t.Fatalf("load survivors: %v", err)
	}
	if len(survivors) != 1 || survivors[0] != newestID {
		t.Fatalf("expected only newest row %s to survive, got %v", newestID, survivors)
	}
}

func TestCleanupLeavesRecentGroupsAlone(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a := testArticle("A Fresh Story Worth Keeping", "https://example.com/fresh-1")
	if result := store.SaveArticle(ctx, &a); result.Outcome != domain.OutcomeSaved {
		t.Fatalf("seed save failed: %q", result.Status)
	}

	removed, err := store.CleanOldDuplicates(ctx, 90)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing removed, got %d", removed)
	}
}

func TestDuplicateStats(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i, link := range []string{"https://alpha.example.com/a", "https://alpha.example.com/b", "https://beta.example.org/c"} {
		article := testArticle("Distinct Headline Number "+string(rune('A'+i)), link)
		if result := store.SaveArticle(ctx, &article); result.Outcome != domain.OutcomeSaved {
			t.Fatalf("seed save failed: %q", result.Status)
		}
	}

	stats, err := store.DuplicateStats(ctx, 30)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChecked != 3 {
		t.Fatalf("expected 3 checked, got %d", stats.TotalChecked)
	}
	if stats.DomainDistribution["alpha.example.com"] != 2 {
		t.Fatalf("unexpected domain distribution: %v", stats.DomainDistribution)
	}
	if stats.TitleDuplicates != 0 {
		t.Fatalf("expected no duplicate clusters, got %d", stats.TitleDuplicates)
	}
}

func TestRecentArticlesAndSources(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	older := testArticle("Published Earlier This Week", "https://example.com/earlier")
	older.PublishedDate = time.Now().AddDate(0, 0, -2)
	newer := testArticle("Published Just This Morning", "https://example.com/morning")

	for _, article := range []*domain.Article{&older, &newer} {
		if result := store.SaveArticle(ctx, article); result.Outcome != domain.OutcomeSaved {
			t.Fatalf("seed save failed: %q", result.Status)
		}
	}

	recent, err := store.RecentArticles(ctx, "TLDR AI", 7, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent articles, got %d", len(recent))
	}
	if recent[0].Title != "Published Just This Morning" {
		t.Fatalf("expected newest first, got %q", recent[0].Title)
	}
	if len(recent[0].Tags) == 0 {
		t.Fatal("tags lost in round trip")
	}

	sources, err := store.Sources(ctx)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 1 || sources[0] != "TLDR AI" {
		t.Fatalf("unexpected sources: %v", sources)
	}
}
