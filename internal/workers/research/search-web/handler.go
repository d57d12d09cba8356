// internal/workers/research/search-web/handler.go
package searchweb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"
	"research-workers/internal/providers/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-web"
)

type Handler struct {
	config   *Config
	provider search.Provider
	logger   logger.Logger
}

func NewHandler(config *Config, provider search.Provider, log logger.Logger) *Handler {
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
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
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

// Execute never surfaces provider errors: a failed search is logged and
// yields no results. Only context cancellation is returned.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("searching", map[string]interface{}{
		"query": input.Query,
		"limit": limit,
	})

	results, err := h.provider.Search(ctx, input.Query, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		h.logger.Error("search failed", map[string]interface{}{
			"query": input.Query,
			"error": err.Error(),
		})
		return &Output{Results: []models.SearchResult{}}, nil
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	h.logger.Info("search completed", map[string]interface{}{
		"query":   input.Query,
		"results": len(results),
	})
	return &Output{Results: results}, nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
