// internal/workers/research/synthesize-answer/handler.go
package synthesizeanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"research-workers/internal/audit"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"
	"research-workers/internal/providers/llm"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "synthesize-answer"
)

var (
	ErrLLMTimeout      = errors.New("LLM_TIMEOUT")
	ErrSynthesisFailed = errors.New("SYNTHESIS_FAILED")
)

type Handler struct {
	config *Config
	llm    llm.Provider
	store  audit.Store
	logger logger.Logger
}

func NewHandler(config *Config, provider llm.Provider, store audit.Store, log logger.Logger) *Handler {
	if store == nil {
		store = audit.NopStore{}
	}
	return &Handler{
		config: config,
		llm:    provider,
		store:  store,
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

	answer, err := h.Execute(ctx, &input)
	if err != nil {
		retries := int32(0)
		if errors.Is(err, ErrLLMTimeout) || errors.Is(err, ErrSynthesisFailed) {
			retries = 1
		}
		h.failJob(client, job, err, retries)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(Output{Answer: answer})
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

// Execute makes a single model call over the data points and parses the
// fenced JSON answer. The parsed answer is written to the user_response
// audit area; a failed write is logged only.
func (h *Handler) Execute(ctx context.Context, input *Input) (*models.SynthesizedAnswer, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	prompt := BuildPrompt(input.Query, input.DataPoints)
	h.logger.Info("sending synthesis prompt", map[string]interface{}{
		"dataPoints":  len(input.DataPoints),
		"promptChars": len(prompt),
	})

	text, err := h.llm.Generate(ctx, prompt)
	if err != nil {
		metrics.LLMCalls.WithLabelValues("synthesize", "error").Inc()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	answer, err := ParseModelJSON(text)
	if err != nil {
		metrics.LLMCalls.WithLabelValues("synthesize", "unparseable").Inc()
		h.logger.Error("failed to parse model answer", map[string]interface{}{
			"error":           err.Error(),
			"completionChars": len(text),
		})
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	metrics.LLMCalls.WithLabelValues("synthesize", "success").Inc()

	if answer.DetailedAnalysis == "" {
		h.logger.Warn("model returned an empty detailed_analysis", nil)
	}

	if path, err := h.store.Save(ctx, audit.KindUserResponse, answer); err != nil {
		h.logger.Error("failed to save user response", map[string]interface{}{
			"error": err.Error(),
		})
	} else if path != "" {
		h.logger.Info("user response saved", map[string]interface{}{"path": path})
	}

	h.logger.Info("synthesis completed", map[string]interface{}{
		"websites": len(answer.Websites),
		"videos":   len(answer.Videos),
	})
	return answer, nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "UNKNOWN_ERROR"
	if errors.Is(err, ErrLLMTimeout) {
		errorCode = "LLM_TIMEOUT"
	} else if errors.Is(err, ErrSynthesisFailed) {
		errorCode = "SYNTHESIS_FAILED"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}
