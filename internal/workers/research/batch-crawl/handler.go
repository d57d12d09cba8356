// internal/workers/research/batch-crawl/handler.go
package batchcrawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"
	"research-workers/internal/providers/crawl"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "batch-crawl"
)

var (
	ErrCrawlSubmitFailed     = errors.New("CRAWL_SUBMIT_FAILED")
	ErrCrawlPollFailed       = errors.New("CRAWL_POLL_FAILED")
	ErrCrawlPollExhausted    = errors.New("CRAWL_TIMEOUT")
	ErrCrawlJobIncomplete    = errors.New("CRAWL_JOB_INCOMPLETE")
	ErrCrawlExtractionFailed = errors.New("CRAWL_EXTRACTION_FAILED")
)

type Handler struct {
	config   *Config
	provider crawl.Provider
	logger   logger.Logger
}

func NewHandler(config *Config, provider crawl.Provider, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		provider: provider,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		retries := int32(0)
		if errors.Is(err, ErrCrawlSubmitFailed) || errors.Is(err, ErrCrawlPollFailed) {
			retries = 2
		} else if errors.Is(err, ErrCrawlPollExhausted) {
			retries = 1
		}
		h.failJob(client, job, err, retries)
		return
	}

	h.completeJob(client, job, output)
}

// Execute submits one batch job for the de-duplicated URLs and polls it
// until it reaches a terminal status. A failed or cancelled job is
// returned together with ErrCrawlJobIncomplete.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	urls := dedupe(input.URLs)
	h.logger.Info("submitting batch crawl", map[string]interface{}{
		"requested": len(input.URLs),
		"unique":    len(urls),
	})

	if len(urls) == 0 {
		h.logger.Warn("no urls to crawl, skipping submission", nil)
		return &Output{
			Job:      &models.BatchJob{Status: models.CrawlStatusCompleted, Documents: []models.CrawledDocument{}},
			Contents: map[string]string{},
		}, nil
	}

	jobID, err := h.provider.Submit(ctx, urls, h.config.Formats)
	if err != nil {
		h.logger.Error("batch crawl submission failed", map[string]interface{}{
			"error": err.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrCrawlSubmitFailed, err)
	}

	job, err := h.poll(ctx, jobID)
	if err != nil {
		h.logger.Error("batch crawl polling stopped", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
		return nil, err
	}

	switch job.Status {
	case models.CrawlStatusFailed, models.CrawlStatusCancelled:
		h.logger.Error("batch crawl did not complete", map[string]interface{}{
			"jobId":  jobID,
			"status": string(job.Status),
		})
		return &Output{Job: job, Contents: map[string]string{}}, fmt.Errorf("%w: job %s %s", ErrCrawlJobIncomplete, jobID, job.Status)
	}

	if job.Documents == nil {
		h.logger.Error("completed batch crawl carries no document list", map[string]interface{}{
			"jobId": jobID,
		})
		return nil, fmt.Errorf("%w: job %s returned no data", ErrCrawlExtractionFailed, jobID)
	}

	contents := ExtractContents(job.Documents)
	if dropped := len(job.Documents) - len(contents); dropped > 0 {
		metrics.DroppedRecords.WithLabelValues(TaskType, "no_url_or_markdown").Add(float64(dropped))
	}
	h.logger.Info("batch crawl completed", map[string]interface{}{
		"jobId":     jobID,
		"documents": len(job.Documents),
		"extracted": len(contents),
	})

	return &Output{Job: job, Contents: contents}, nil
}

func (h *Handler) poll(ctx context.Context, jobID string) (*models.BatchJob, error) {
	consecutiveErrors := 0

	for attempt := 1; attempt <= h.config.MaxPollAttempts; attempt++ {
		job, err := h.provider.Status(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			consecutiveErrors++
			metrics.CrawlPolls.WithLabelValues("error").Inc()
			h.logger.Warn("batch crawl status check failed", map[string]interface{}{
				"jobId":             jobID,
				"attempt":           attempt,
				"consecutiveErrors": consecutiveErrors,
				"error":             err.Error(),
			})
			if consecutiveErrors >= h.config.MaxPollErrors {
				return nil, fmt.Errorf("%w: %d consecutive status errors: %v", ErrCrawlPollFailed, consecutiveErrors, err)
			}
		case job.Status.IsTerminal():
			metrics.CrawlPolls.WithLabelValues(string(job.Status)).Inc()
			return job, nil
		default:
			consecutiveErrors = 0
			metrics.CrawlPolls.WithLabelValues("pending").Inc()
			h.logger.Debug("batch crawl in progress", map[string]interface{}{
				"jobId":     jobID,
				"status":    string(job.Status),
				"completed": job.Completed,
				"total":     job.Total,
			})
		}

		if attempt == h.config.MaxPollAttempts {
			break
		}
		select {
		case <-time.After(h.config.PollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: job %s not finished after %d polls", ErrCrawlPollExhausted, jobID, h.config.MaxPollAttempts)
}

// ExtractContents keys each document's markdown by the URL it reports.
// Documents without a URL or without markdown are skipped.
func ExtractContents(docs []models.CrawledDocument) map[string]string {
	contents := make(map[string]string, len(docs))
	for _, d := range docs {
		u := d.ResolvedURL()
		if u == "" || d.Markdown == nil {
			continue
		}
		contents[u] = *d.Markdown
	}
	return contents
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "UNKNOWN_ERROR"
	for _, sentinel := range []error{ErrCrawlSubmitFailed, ErrCrawlPollFailed, ErrCrawlPollExhausted, ErrCrawlJobIncomplete, ErrCrawlExtractionFailed} {
		if errors.Is(err, sentinel) {
			errorCode = sentinel.Error()
			break
		}
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
