package crawl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/models"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly"
	"github.com/google/uuid"
)

const (
	maxPageBytes = 5 << 20
	userAgent    = "research-workers/1.0 (+local-crawl)"

	// terminalRetention bounds how long a finished job waits to be polled.
	terminalRetention = 10 * time.Minute
)

// Local is an in-process crawl backend. Each batch gets its own async colly
// collector; pages are reduced to their main article with readability and
// rendered as light markdown. A job is dropped from memory the first time
// Status reports it terminal, or after terminalRetention if nobody asks.
type Local struct {
	timeout     time.Duration
	concurrency int
	retention   time.Duration
	logger      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*models.BatchJob
}

func NewLocal(timeout time.Duration, concurrency int, log logger.Logger) *Local {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		timeout:     timeout,
		concurrency: concurrency,
		retention:   terminalRetention,
		logger:      log.With(map[string]interface{}{"provider": "local-crawl"}),
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*models.BatchJob),
	}
}

// Submit registers the job and crawls in the background. The submitting
// context only bounds registration; the crawl itself lives until Close.
func (l *Local) Submit(ctx context.Context, urls []string, formats []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: no urls", ErrJobRejected)
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.jobs[id] = &models.BatchJob{ID: id, Status: models.CrawlStatusScraping, Total: len(urls)}
	l.mu.Unlock()

	go l.run(id, append([]string(nil), urls...))
	return id, nil
}

func (l *Local) Status(ctx context.Context, jobID string) (*models.BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.IsTerminal() {
		delete(l.jobs, jobID)
		return job, nil
	}
	snapshot := *job
	if job.Documents != nil {
		snapshot.Documents = append([]models.CrawledDocument(nil), job.Documents...)
	}
	return &snapshot, nil
}

// Close cancels in-flight crawls; their jobs end as cancelled.
func (l *Local) Close() {
	l.cancel()
}

func (l *Local) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(maxPageBytes),
		colly.Async(true),
	)
	c.SetRequestTimeout(l.timeout)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: l.concurrency,
	})
	return c
}

func (l *Local) run(id string, urls []string) {
	docs := make([]models.CrawledDocument, len(urls))
	for i, u := range urls {
		docs[i] = models.CrawledDocument{URL: u, SourceURL: u}
	}

	finished := func() {
		l.mu.Lock()
		l.jobs[id].Completed++
		l.mu.Unlock()
	}

	c := l.newCollector()

	c.OnRequest(func(r *colly.Request) {
		if l.ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	c.OnResponse(func(r *colly.Response) {
		defer finished()
		i, err := strconv.Atoi(r.Ctx.Get("index"))
		if err != nil || i < 0 || i >= len(docs) {
			return
		}

		title, md, err := extract(r.Body, r.Request.URL)
		if err != nil {
			l.logger.Warn("page extraction failed", map[string]interface{}{
				"jobId": id,
				"url":   urls[i],
				"error": err.Error(),
			})
			return
		}
		docs[i].Title = title
		docs[i].Markdown = &md
	})

	c.OnError(func(r *colly.Response, err error) {
		defer finished()
		l.logger.Warn("page fetch failed", map[string]interface{}{
			"jobId":  id,
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
			"error":  err.Error(),
		})
	})

	for i, u := range urls {
		pageCtx := colly.NewContext()
		pageCtx.Put("index", strconv.Itoa(i))
		if err := c.Request(http.MethodGet, u, nil, pageCtx, nil); err != nil {
			l.logger.Warn("page request rejected", map[string]interface{}{
				"jobId": id,
				"url":   u,
				"error": err.Error(),
			})
			finished()
		}
	}
	c.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	job := l.jobs[id]
	if l.ctx.Err() != nil {
		job.Status = models.CrawlStatusCancelled
	} else {
		job.Status = models.CrawlStatusCompleted
		job.Documents = docs
	}
	time.AfterFunc(l.retention, func() { l.forget(id) })
}

func (l *Local) forget(id string) {
	l.mu.Lock()
	delete(l.jobs, id)
	l.mu.Unlock()
}

// extract reduces a fetched page to its article and renders it.
func extract(body []byte, pageURL *url.URL) (string, string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", "", err
	}

	return article.Title, renderMarkdown(article.Title, doc), nil
}

// renderMarkdown keeps headings, paragraphs, list items and code blocks.
// Anything else falls back to the document text.
func renderMarkdown(title string, doc *goquery.Document) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("# " + strings.TrimSpace(title) + "\n\n")
	}

	blocks := 0
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("li, blockquote, pre").Length() > 0 {
			return
		}
		text := collapseSpace(s.Text())
		if text == "" {
			return
		}

		switch tag := goquery.NodeName(s); tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString(strings.Repeat("#", int(tag[1]-'0')) + " " + text)
		case "li":
			b.WriteString("- " + text)
		case "pre":
			b.WriteString("```\n" + strings.TrimSpace(s.Text()) + "\n```")
		case "blockquote":
			b.WriteString("> " + text)
		default:
			b.WriteString(text)
		}
		b.WriteString("\n\n")
		blocks++
	})

	if blocks == 0 {
		b.WriteString(collapseSpace(doc.Text()))
	}
	return strings.TrimSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
