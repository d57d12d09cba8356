package models

// CrawlStatus is the lifecycle state of a batch crawl job.
type CrawlStatus string

const (
	CrawlStatusScraping  CrawlStatus = "scraping"
	CrawlStatusCompleted CrawlStatus = "completed"
	CrawlStatusFailed    CrawlStatus = "failed"
	CrawlStatusCancelled CrawlStatus = "cancelled"
)

// IsTerminal reports whether polling can stop.
func (s CrawlStatus) IsTerminal() bool {
	switch s {
	case CrawlStatusCompleted, CrawlStatusFailed, CrawlStatusCancelled:
		return true
	}
	return false
}

// CrawledDocument is one page returned by a batch crawl. Markdown is nil
// when the backend produced no markdown for the page.
type CrawledDocument struct {
	URL       string  `json:"url"`
	SourceURL string  `json:"sourceURL,omitempty"`
	Title     string  `json:"title,omitempty"`
	Markdown  *string `json:"markdown,omitempty"`
}

// ResolvedURL is the URL the document reports for itself, falling back to
// the URL that was requested.
func (d CrawledDocument) ResolvedURL() string {
	if d.URL != "" {
		return d.URL
	}
	return d.SourceURL
}

// BatchJob is the state of a batch crawl as last observed.
type BatchJob struct {
	ID        string            `json:"id"`
	Status    CrawlStatus       `json:"status"`
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Documents []CrawledDocument `json:"documents"`
}
