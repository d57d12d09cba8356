// internal/workers/research/decompose-query/handler.go
package decomposequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/providers/llm"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "decompose-query"

	// SentinelSubQuery is returned alone when no usable sub-queries could be
	// produced. Callers detect it through Output.Failed or IsSentinel.
	SentinelSubQuery = "[GEMINI-ERROR] Failed to generate sub-queries for the given user query."

	// MinSubQueries is the number of usable lines an attempt must yield.
	MinSubQueries = 3
)

var (
	ErrInvalidInput = errors.New("INVALID_QUERY")
)

type Handler struct {
	config *Config
	llm    llm.Provider
	logger logger.Logger
}

func NewHandler(config *Config, provider llm.Provider, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		llm:    provider,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// IsSentinel reports whether subQueries is the failure sentinel.
func IsSentinel(subQueries []string) bool {
	return len(subQueries) == 1 && subQueries[0] == SentinelSubQuery
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err, 0)
		return
	}

	h.completeJob(client, job, output)
}

// Execute asks the model for sub-queries, retrying the whole call when
// fewer than MinSubQueries usable lines come back. At most MaxSubQueries
// are forwarded. It only returns an
// error for empty input or context cancellation.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	prompt := BuildPrompt(query)
	for attempt := 1; attempt <= h.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h.logger.Info("generating sub-queries", map[string]interface{}{"attempt": attempt})

		text, err := h.llm.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.LLMCalls.WithLabelValues("decompose", "error").Inc()
			h.logger.Error("sub-query generation failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		subQueries := ParseSubQueries(text, h.config.MinWords)
		if len(subQueries) >= MinSubQueries {
			if limit := max(h.config.MaxSubQueries, MinSubQueries); len(subQueries) > limit {
				subQueries = subQueries[:limit]
			}
			metrics.LLMCalls.WithLabelValues("decompose", "success").Inc()
			h.logger.Info("sub-queries parsed", map[string]interface{}{
				"returned": len(subQueries),
			})
			return &Output{SubQueries: subQueries}, nil
		}

		metrics.LLMCalls.WithLabelValues("decompose", "insufficient").Inc()
		h.logger.Warn("insufficient sub-queries", map[string]interface{}{
			"attempt": attempt,
			"parsed":  len(subQueries),
			"raw":     text,
		})
	}

	h.logger.Error("failed to generate sub-queries", map[string]interface{}{
		"attempts": h.config.MaxAttempts,
	})
	return &Output{SubQueries: []string{SentinelSubQuery}, Failed: true}, nil
}

// ParseSubQueries keeps bullet lines ("-" or "•") that carry at least
// minWords words once the bullet is stripped.
func ParseSubQueries(text string, minWords int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "•") {
			continue
		}
		candidate := strings.TrimSpace(strings.Trim(trimmed, "-• "))
		if len(strings.Fields(candidate)) < minWords {
			continue
		}
		out = append(out, candidate)
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
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":  job.Key,
		"error":   err.Error(),
		"retries": retries,
	})
	code := "LLM_ERROR"
	if errors.Is(err, ErrInvalidInput) {
		code = ErrInvalidInput.Error()
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
