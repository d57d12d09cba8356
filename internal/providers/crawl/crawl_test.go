package crawl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Firecrawl
// ==========================

func newFirecrawl(t *testing.T, handler http.HandlerFunc) *Firecrawl {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewFirecrawl(config.CrawlConfig{
		Backend: "firecrawl",
		BaseURL: server.URL,
		APIKey:  "fc-key",
		Timeout: 5000,
	}, logger.NewTestLogger(t))
}

func TestFirecrawl_Submit(t *testing.T) {
	fc := newFirecrawl(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/batch/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var body batchScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, body.URLs)
		assert.Equal(t, []string{"markdown"}, body.Formats)

		_, _ = io.WriteString(w, `{"success": true, "id": "job-123", "url": "https://api.firecrawl.dev/v1/batch/scrape/job-123"}`)
	})

	id, err := fc.Submit(context.Background(), []string{"https://a.example", "https://b.example"}, []string{"markdown"})
	require.NoError(t, err)
	assert.Equal(t, "job-123", id)
}

func TestFirecrawl_Submit_Rejected(t *testing.T) {
	fc := newFirecrawl(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success": false, "error": "Insufficient credits"}`)
	})

	_, err := fc.Submit(context.Background(), []string{"https://a.example"}, []string{"markdown"})
	assert.ErrorIs(t, err, ErrJobRejected)
}

func TestFirecrawl_Status(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   models.CrawlStatus
		docsNil  bool
		docCount int
	}{
		{
			name:    "still scraping",
			body:    `{"status": "scraping", "total": 2, "completed": 1}`,
			status:  models.CrawlStatusScraping,
			docsNil: true,
		},
		{
			name: "completed",
			body: `{"status": "completed", "total": 2, "completed": 2, "data": [
				{"markdown": "# A", "metadata": {"url": "https://a.example/", "sourceURL": "https://a.example", "title": "A"}},
				{"metadata": {"sourceURL": "https://b.example"}}
			]}`,
			status:   models.CrawlStatusCompleted,
			docCount: 2,
		},
		{
			name:    "completed with null data",
			body:    `{"status": "completed", "total": 1, "completed": 1, "data": null}`,
			status:  models.CrawlStatusCompleted,
			docsNil: true,
		},
		{
			name:   "completed with empty data",
			body:   `{"status": "completed", "total": 0, "completed": 0, "data": []}`,
			status: models.CrawlStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFirecrawl(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/batch/scrape/job-1", r.URL.Path)
				_, _ = io.WriteString(w, tt.body)
			})

			job, err := fc.Status(context.Background(), "job-1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, job.Status)
			assert.Equal(t, tt.docsNil, job.Documents == nil)
			assert.Len(t, job.Documents, tt.docCount)
		})
	}
}

func TestFirecrawl_Status_DocumentFields(t *testing.T) {
	fc := newFirecrawl(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status": "completed", "total": 2, "completed": 2, "data": [
			{"markdown": "# A", "metadata": {"url": "https://a.example/", "sourceURL": "https://a.example", "title": "A"}},
			{"metadata": {"sourceURL": "https://b.example"}}
		]}`)
	})

	job, err := fc.Status(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, job.Documents, 2)

	assert.Equal(t, "https://a.example/", job.Documents[0].ResolvedURL())
	require.NotNil(t, job.Documents[0].Markdown)
	assert.Equal(t, "# A", *job.Documents[0].Markdown)
	assert.Equal(t, "https://b.example", job.Documents[1].ResolvedURL())
	assert.Nil(t, job.Documents[1].Markdown)
}

// ==========================
// Local
// ==========================

const articleHTML = `<!DOCTYPE html>
<html><head><title>Electric Vehicle Safety Ratings</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Electric Vehicle Safety Ratings</h1>
<p>Electric vehicles have posted strong results in recent crash tests, with several models earning top marks from independent testing organisations across multiple categories of impact.</p>
<h2>Battery protection</h2>
<p>Engineers place the battery pack low in the chassis, which lowers the centre of gravity and reduces rollover risk, a pattern confirmed by repeated side impact evaluations this year.</p>
<ul><li>Front crash prevention rated superior</li><li>Headlights rated acceptable</li></ul>
<p>Testing bodies continue to update their protocols as driver assistance systems become standard equipment, and the next round of evaluations will focus on rear seat occupant protection.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestLocal_CrawlsInBackground(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, articleHTML)
	}))
	t.Cleanup(server.Close)

	l := NewLocal(5*time.Second, 2, logger.NewTestLogger(t))
	t.Cleanup(l.Close)

	urls := []string{server.URL + "/ev", server.URL + "/missing"}
	id, err := l.Submit(context.Background(), urls, []string{"markdown"})
	require.NoError(t, err)

	var job *models.BatchJob
	require.Eventually(t, func() bool {
		job, err = l.Status(context.Background(), id)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, models.CrawlStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Total)
	assert.Equal(t, 2, job.Completed)
	require.Len(t, job.Documents, 2)

	ok := job.Documents[0]
	assert.Equal(t, urls[0], ok.ResolvedURL())
	require.NotNil(t, ok.Markdown)
	assert.Contains(t, *ok.Markdown, "battery pack low in the chassis")
	assert.NotContains(t, *ok.Markdown, "Copyright")

	assert.Equal(t, urls[1], job.Documents[1].ResolvedURL())
	assert.Nil(t, job.Documents[1].Markdown)
}

func TestLocal_ForgetsJobOnceObservedTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, articleHTML)
	}))
	t.Cleanup(server.Close)

	l := NewLocal(5*time.Second, 1, logger.NewTestLogger(t))
	t.Cleanup(l.Close)

	id, err := l.Submit(context.Background(), []string{server.URL + "/ev"}, nil)
	require.NoError(t, err)

	var job *models.BatchJob
	require.Eventually(t, func() bool {
		job, err = l.Status(context.Background(), id)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)
	require.Len(t, job.Documents, 1)

	_, err = l.Status(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobNotFound)

	l.mu.RLock()
	defer l.mu.RUnlock()
	assert.Empty(t, l.jobs)
}

func TestLocal_ExpiresUnobservedJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, articleHTML)
	}))
	t.Cleanup(server.Close)

	l := NewLocal(5*time.Second, 1, logger.NewTestLogger(t))
	l.retention = 50 * time.Millisecond
	t.Cleanup(l.Close)

	_, err := l.Submit(context.Background(), []string{server.URL + "/ev"}, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return len(l.jobs) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLocal_UnknownJob(t *testing.T) {
	l := NewLocal(time.Second, 1, logger.NewNoOpLogger())
	defer l.Close()

	_, err := l.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestLocal_RejectsEmptyBatch(t *testing.T) {
	l := NewLocal(time.Second, 1, logger.NewNoOpLogger())
	defer l.Close()

	_, err := l.Submit(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrJobRejected)
}

func TestRenderMarkdown(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><h2>Heading</h2><p>Some   text
		here</p><ul><li><p>nested item</p></li></ul><pre>code  block</pre></div>`))
	require.NoError(t, err)

	md := renderMarkdown("Title", doc)
	assert.Equal(t, "# Title\n\n## Heading\n\nSome text here\n\n- nested item\n\n```\ncode  block\n```", md)
}

func TestRenderMarkdown_FallsBackToText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><span>only   inline</span></div>`))
	require.NoError(t, err)

	assert.Equal(t, "only inline", renderMarkdown("", doc))
}
