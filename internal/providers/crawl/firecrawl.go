package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"research-workers/internal/common/config"
	httpclient "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
	"research-workers/internal/models"
)

// Firecrawl talks to the Firecrawl v1 batch scrape API.
type Firecrawl struct {
	client  *httpclient.Client
	baseURL string
	logger  logger.Logger
}

type batchScrapeRequest struct {
	URLs    []string `json:"urls"`
	Formats []string `json:"formats"`
}

type batchScrapeResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type batchStatusResponse struct {
	Status    string              `json:"status"`
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Data      []firecrawlDocument `json:"data"`
}

type firecrawlDocument struct {
	Markdown *string `json:"markdown"`
	Metadata struct {
		URL       string `json:"url"`
		SourceURL string `json:"sourceURL"`
		Title     string `json:"title"`
	} `json:"metadata"`
}

func NewFirecrawl(cfg config.CrawlConfig, log logger.Logger) *Firecrawl {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Firecrawl{
		client: httpclient.NewClient(timeout,
			httpclient.WithRetries(2, 500*time.Millisecond),
			httpclient.WithHeader("Authorization", "Bearer "+cfg.APIKey),
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log.With(map[string]interface{}{"provider": "firecrawl"}),
	}
}

func (f *Firecrawl) Submit(ctx context.Context, urls []string, formats []string) (string, error) {
	var resp batchScrapeResponse
	err := f.client.PostJSON(ctx, f.baseURL+"/v1/batch/scrape", batchScrapeRequest{
		URLs:    urls,
		Formats: formats,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrJobRejected, resp.Error)
	}

	f.logger.Info("batch scrape submitted", map[string]interface{}{
		"jobId": resp.ID,
		"urls":  len(urls),
	})
	return resp.ID, nil
}

func (f *Firecrawl) Status(ctx context.Context, jobID string) (*models.BatchJob, error) {
	var resp batchStatusResponse
	if err := f.client.GetJSON(ctx, f.baseURL+"/v1/batch/scrape/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, err
	}

	job := &models.BatchJob{
		ID:        jobID,
		Status:    models.CrawlStatus(resp.Status),
		Total:     resp.Total,
		Completed: resp.Completed,
	}
	// A null data array stays nil so callers can tell it from an empty one.
	if resp.Data != nil {
		job.Documents = make([]models.CrawledDocument, 0, len(resp.Data))
		for _, d := range resp.Data {
			job.Documents = append(job.Documents, models.CrawledDocument{
				URL:       d.Metadata.URL,
				SourceURL: d.Metadata.SourceURL,
				Title:     d.Metadata.Title,
				Markdown:  d.Markdown,
			})
		}
	}
	return job, nil
}
