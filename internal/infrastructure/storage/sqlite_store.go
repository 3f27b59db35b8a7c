package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"trendcreate/internal/domain"
	"trendcreate/internal/ports"
)

const (
	cacheWindowDays      = 30
	sameDomainWindowDays = 7
	tableName            = "news_items"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
	"id" varchar not null primary key,
	"title" varchar not null,
	"summary" text,
	"link" varchar not null unique,
	"source" varchar not null,
	"published_date" datetime not null,
	"content" text,
	"tags" varchar,
	"image_url" varchar,
	"read_time" varchar,
	"title_hash" varchar not null,
	"content_hash" varchar,
	"domain" varchar,
	"created_at" datetime not null,
	"updated_at" datetime not null
);
CREATE INDEX IF NOT EXISTS idx_title_hash ON news_items(title_hash);
CREATE INDEX IF NOT EXISTS idx_content_hash ON news_items(content_hash);
CREATE INDEX IF NOT EXISTS idx_domain_date ON news_items(domain, published_date);
CREATE INDEX IF NOT EXISTS idx_source_date ON news_items(source, published_date);
`

// articleRow mirrors the news_items schema; tags travel as a comma-joined
// string.
type articleRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Summary       string    `db:"summary"`
	Link          string    `db:"link"`
	Source        string    `db:"source"`
	PublishedDate time.Time `db:"published_date"`
	Content       string    `db:"content"`
	Tags          string    `db:"tags"`
	ImageURL      string    `db:"image_url"`
	ReadTime      string    `db:"read_time"`
	TitleHash     string    `db:"title_hash"`
	ContentHash   string    `db:"content_hash"`
	Domain        string    `db:"domain"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Store persists articles in SQLite with layered duplicate detection. The
// in-memory caches are strictly accelerators warmed from the store at startup;
// any read after a restart falls back to the database.
type Store struct {
	db       *sqlx.DB
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time

	mu             sync.Mutex
	linkCache      map[string]struct{}
	titleHashCache map[string]struct{}
}

var _ ports.ArticleStore = (*Store)(nil)

// Open connects to the SQLite file, creates the schema and warms the
// duplicate-detection caches from the last 30 days of records.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	store := &Store{
		db:             db,
		logger:         logger,
		validate:       validator.New(),
		now:            time.Now,
		linkCache:      map[string]struct{}{},
		titleHashCache: map[string]struct{}{},
	}

	if err := store.warmCaches(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("warm caches: %w", err)
	}

	return store, nil
}

func (s *Store) warmCaches(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -cacheWindowDays)

	query, args, err := sq.Select("link", "title_hash").
		From(tableName).
		Where(sq.GtOrEq{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cache query: %w", err)
	}

	var rows []struct {
		Link      string `db:"link"`
		TitleHash string `db:"title_hash"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load recent records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.linkCache[row.Link] = struct{}{}
		if row.TitleHash != "" {
			s.titleHashCache[row.TitleHash] = struct{}{}
		}
	}

	s.logger.Info("warmed duplicate caches", "links", len(s.linkCache), "title_hashes", len(s.titleHashCache))
	return nil
}

// IsDuplicate classifies the article against previously stored content. The
// checks run in fixed precedence and short-circuit on the first match; a
// store error downgrades to "not duplicate" so one bad query cannot block a
// whole batch.
func (s *Store) IsDuplicate(ctx context.Context, article domain.Article) (bool, string) {
	titleHash := domain.HashTitle(article.Title)

	s.mu.Lock()
	_, linkHit := s.linkCache[article.Link]
	_, titleHit := s.titleHashCache[titleHash]
	s.mu.Unlock()

	if linkHit {
		return true, domain.ReasonExactLinkMatch
	}
	if titleHit {
		return true, domain.ReasonSimilarTitleMatch
	}

	host := domain.DomainOf(article.Link)
	cutoff := s.now().AddDate(0, 0, -sameDomainWindowDays)

	found, err := s.exists(ctx, sq.And{
		sq.Eq{"domain": host, "title_hash": titleHash},
		sq.GtOrEq{"published_date": cutoff},
	})
	if err != nil {
		s.logger.Error("duplicate check failed", "link", article.Link, "error", err)
		return false, domain.ReasonNotDuplicate
	}
	if found {
		return true, domain.ReasonSimilarContentDomain
	}

	// Defensive fallback in case the cache missed a stored link.
	found, err = s.exists(ctx, sq.Eq{"link": article.Link})
	if err != nil {
		s.logger.Error("duplicate check failed", "link", article.Link, "error", err)
		return false, domain.ReasonNotDuplicate
	}
	if found {
		return true, domain.ReasonExactLinkDatabase
	}

	return false, domain.ReasonNotDuplicate
}

func (s *Store) exists(ctx context.Context, pred any) (bool, error) {
	query, args, err := sq.Select("1").From(tableName).Where(pred).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = s.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveArticle persists a single article. The duplicate check re-runs here as
// a defense against races within a batch; hashes and the cached domain column
// are computed at this point and nowhere else.
func (s *Store) SaveArticle(ctx context.Context, article *domain.Article) domain.SaveResult {
	if dup, reason := s.IsDuplicate(ctx, *article); dup {
		s.logger.Info("skipping duplicate article", "title", clipTitle(article.Title), "reason", reason)
		return domain.SaveResult{
			Outcome: domain.OutcomeDuplicate,
			Status:  "duplicate_" + reason,
			Reason:  reason,
		}
	}

	article.Finalize(s.now())
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	if err := s.validate.Struct(article); err != nil {
		return domain.SaveResult{
			Outcome: domain.OutcomeError,
			Status:  "error_validation",
			Err:     fmt.Errorf("validate article: %w", err),
		}
	}

	query, args, err := sq.Insert(tableName).
		Columns("id", "title", "summary", "link", "source", "published_date",
			"content", "tags", "image_url", "read_time",
			"title_hash", "content_hash", "domain", "created_at", "updated_at").
		Values(article.ID, article.Title, article.Summary, article.Link, article.Source,
			article.PublishedDate, article.Content, strings.Join(article.Tags, ","),
			article.ImageURL, article.ReadTime,
			article.TitleHash, article.ContentHash, article.Domain,
			article.CreatedAt, article.UpdatedAt).
		ToSql()
	if err != nil {
		return domain.SaveResult{Outcome: domain.OutcomeError, Status: "error_insert", Err: err}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		// A concurrent writer beat us to the same link. The unique
		// constraint is the backstop invariant; the caller still sees a
		// duplicate outcome.
		if isUniqueViolation(err) {
			s.addToCaches(article.Link, article.TitleHash)
			return domain.SaveResult{
				Outcome: domain.OutcomeDuplicate,
				Status:  "duplicate_" + domain.ReasonExactLinkDatabase,
				Reason:  domain.ReasonExactLinkDatabase,
			}
		}
		return domain.SaveResult{
			Outcome: domain.OutcomeError,
			Status:  "error_insert",
			Err:     fmt.Errorf("insert article: %w", err),
		}
	}

	s.addToCaches(article.Link, article.TitleHash)
	s.logger.Info("saved article", "title", clipTitle(article.Title), "domain", article.Domain)

	return domain.SaveResult{Outcome: domain.OutcomeSaved, Status: domain.OutcomeSaved}
}

func (s *Store) addToCaches(link, titleHash string) {
	s.mu.Lock()
	s.linkCache[link] = struct{}{}
	if titleHash != "" {
		s.titleHashCache[titleHash] = struct{}{}
	}
	s.mu.Unlock()
}

// SaveBatch applies the single-item procedure to every article and returns
// aggregate counts plus the duplicate-reason breakdown and per-item statuses.
func (s *Store) SaveBatch(ctx context.Context, batch domain.Batch) domain.SaveStats {
	stats := domain.SaveStats{
		Total:            len(batch.Items),
		DuplicateReasons: map[string]int{},
	}

	for i := range batch.Items {
		result := s.SaveArticle(ctx, &batch.Items[i])

		item := domain.ItemStatus{
			Title:  clipTitle(batch.Items[i].Title),
			Link:   batch.Items[i].Link,
			Result: result.Outcome,
			Status: result.Status,
		}

		switch result.Outcome {
		case domain.OutcomeSaved:
			stats.Saved++
		case domain.OutcomeDuplicate:
			stats.Duplicates++
			stats.DuplicateReasons[result.Reason]++
		default:
			stats.Errors++
			s.logger.Error("failed to save article", "link", batch.Items[i].Link, "error", result.Err)
		}

		stats.Items = append(stats.Items, item)
	}

	s.logger.Info("batch save completed",
		"saved", stats.Saved, "duplicates", stats.Duplicates, "errors", stats.Errors)
	return stats
}

// RecentArticles returns stored articles for a source published within the
// lookback window, newest first.
func (s *Store) RecentArticles(ctx context.Context, source string, days, limit int) ([]domain.Article, error) {
	cutoff := s.now().AddDate(0, 0, -days)

	builder := sq.Select("*").
		From(tableName).
		Where(sq.GtOrEq{"published_date": cutoff}).
		OrderBy("published_date DESC").
		Limit(uint64(limit))
	if source != "" {
		builder = builder.Where(sq.Eq{"source": source})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select recent articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, fromRow(row))
	}
	return articles, nil
}

// CleanOldDuplicates collapses title-hash groups among records older than the
// horizon down to their most recently created member. Returns the number of
// rows removed.
func (s *Store) CleanOldDuplicates(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)

	query, args, err := sq.Select("title_hash").
		From(tableName).
		Where(sq.LtOrEq{"created_at": cutoff}).
		GroupBy("title_hash").
		Having("COUNT(*) > 1").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build group query: %w", err)
	}

	var hashes []string
	if err := s.db.SelectContext(ctx, &hashes, query, args...); err != nil {
		return 0, fmt.Errorf("find duplicate groups: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, hash := range hashes {
		query, args, err := sq.Select("id").
			From(tableName).
			Where(sq.Eq{"title_hash": hash}).
			Where(sq.LtOrEq{"created_at": cutoff}).
			OrderBy("created_at DESC").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build group members query: %w", err)
		}

		var ids []string
		if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
			return 0, fmt.Errorf("load group %s: %w", hash, err)
		}
		if len(ids) < 2 {
			continue
		}

		// Keep the newest member, remove the rest.
		query, args, err = sq.Delete(tableName).Where(sq.Eq{"id": ids[1:]}).ToSql()
		if err != nil {
			return 0, fmt.Errorf("build delete query: %w", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("delete group %s: %w", hash, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			removed += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}

	s.logger.Info("cleaned old duplicate entries", "removed", removed)
	return removed, nil
}

// DuplicateStats reports per-domain counts and candidate duplicate clusters
// within the lookback window. Diagnostic only; never consulted for decisions.
func (s *Store) DuplicateStats(ctx context.Context, days int) (domain.DuplicateStats, error) {
	stats := domain.DuplicateStats{DomainDistribution: map[string]int{}}
	cutoff := s.now().AddDate(0, 0, -days)

	query, args, err := sq.Select("domain", "COUNT(*) AS n").
		From(tableName).
		Where(sq.GtOrEq{"created_at": cutoff}).
		GroupBy("domain").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build domain query: %w", err)
	}

	var domainRows []struct {
		Domain string `db:"domain"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &domainRows, query, args...); err != nil {
		return stats, fmt.Errorf("count by domain: %w", err)
	}
	for _, row := range domainRows {
		stats.DomainDistribution[row.Domain] = row.N
	}

	query, args, err = sq.Select("title_hash").
		From(tableName).
		GroupBy("title_hash").
		Having("COUNT(*) > 1").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build clusters query: %w", err)
	}
	var clusters []string
	if err := s.db.SelectContext(ctx, &clusters, query, args...); err != nil {
		return stats, fmt.Errorf("count duplicate clusters: %w", err)
	}
	stats.TitleDuplicates = len(clusters)

	query, args, err = sq.Select("COUNT(*)").
		From(tableName).
		Where(sq.GtOrEq{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build total query: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalChecked, query, args...); err != nil {
		return stats, fmt.Errorf("count total: %w", err)
	}

	return stats, nil
}

// Sources returns the distinct source identifiers present in the store.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	var sources []string
	if err := s.db.SelectContext(ctx, &sources, "SELECT DISTINCT source FROM news_items"); err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}
	return sources, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func fromRow(row articleRow) domain.Article {
	var tags []string
	if row.Tags != "" {
		tags = strings.Split(row.Tags, ",")
	}
	return domain.Article{
		ID:            row.ID,
		Title:         row.Title,
		Summary:       row.Summary,
		Link:          row.Link,
		Source:        row.Source,
		PublishedDate: row.PublishedDate,
		Content:       row.Content,
		Tags:          tags,
		ImageURL:      row.ImageURL,
		ReadTime:      row.ReadTime,
		TitleHash:     row.TitleHash,
		ContentHash:   row.ContentHash,
		Domain:        row.Domain,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func clipTitle(title string) string {
	if len(title) > 50 {
		return title[:50] + "..."
	}
	return title
}
