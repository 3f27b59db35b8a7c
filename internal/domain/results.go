package domain

import "time"

// Fetch statuses cover every observable outcome of a content fetch.
const (
	FetchStatusBlacklisted = "blacklisted"
	FetchStatusFetchFailed = "fetch_failed"
	FetchStatusNoContent   = "no_content"
	FetchStatusSuccess     = "success"
	FetchStatusError       = "error"
)

// Content types assigned by domain-based classification.
const (
	ContentTypeAcademicPaper  = "academic_paper"
	ContentTypeCodeRepository = "code_repository"
	ContentTypeBlogPost       = "blog_post"
	ContentTypeNewsArticle    = "news_article"
	ContentTypeGeneralArticle = "general_article"
)

// ContentResult carries the outcome of a single content fetch. Fetching never
// returns a Go error to the caller; every failure mode is encoded here.
type ContentResult struct {
	Success         bool
	Status          string
	Title           string
	MetaDescription string
	Content         string
	WordCount       int
	ContentType     string
	Domain          string
	Attempts        int
	Error           string
}

// Duplicate reasons, in the order the checks run.
const (
	ReasonExactLinkMatch       = "exact_link_match"
	ReasonSimilarTitleMatch    = "similar_title_match"
	ReasonSimilarContentDomain = "similar_content_same_domain"
	ReasonExactLinkDatabase    = "exact_link_database"
	ReasonNotDuplicate         = "not_duplicate"
)

// Save outcomes for a single article.
const (
	OutcomeSaved     = "saved"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// SaveResult is the per-item persistence outcome.
type SaveResult struct {
	Outcome string
	Status  string
	Reason  string
	Err     error
}

// ItemStatus is a compact per-item line for batch reporting.
type ItemStatus struct {
	Title  string
	Link   string
	Result string
	Status string
}

// SaveStats aggregates a batch persist, including the duplicate-reason
// breakdown needed to diagnose all-duplicate runs.
type SaveStats struct {
	Total            int
	Saved            int
	Duplicates       int
	Errors           int
	DuplicateReasons map[string]int
	Items            []ItemStatus
}

// DuplicateStats is a diagnostic view over the stored corpus.
type DuplicateStats struct {
	DomainDistribution map[string]int
	TitleDuplicates    int
	TotalChecked       int
}

// RunReport summarizes one pipeline run for the CLI.
type RunReport struct {
	Source           string
	StartedAt        time.Time
	Found            int
	Saved            int
	Duplicates       int
	Errors           int
	DuplicateReasons map[string]int
	WithContent      int
	WordsFetched     int
	ExportPath       string
}
