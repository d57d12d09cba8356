// internal/workers/research/assemble-targets/handler.go
package assembletargets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/common/validation"
	"research-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assemble-targets"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.logger.Error("job failed", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		_, _ = client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(0).
			ErrorMessage(fmt.Sprintf("parse input: %v", err)).
			Send(context.Background())
		return
	}

	output := h.Execute(&input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute enriches the targets with crawled content and assembles the
// valid ones into data points.
func (h *Handler) Execute(input *Input) *Output {
	enriched := h.Enrich(input.Targets, input.Contents)
	return &Output{
		Targets:    enriched,
		DataPoints: h.Assemble(enriched),
	}
}

// Enrich attaches trimmed markdown to every target whose link has content.
// Targets without content are kept unchanged. The input slice is not
// modified.
func (h *Handler) Enrich(targets []models.ScrapeTarget, contents map[string]string) []models.ScrapeTarget {
	out := make([]models.ScrapeTarget, 0, len(targets))
	missing := 0
	for _, t := range targets {
		if content, ok := contents[t.Link]; ok {
			trimmed := strings.TrimSpace(content)
			t.Markdown = &trimmed
		} else {
			missing++
			h.logger.Warn("no content for target", map[string]interface{}{"link": t.Link})
		}
		out = append(out, t)
	}

	h.logger.Info("targets enriched", map[string]interface{}{
		"targets":    len(targets),
		"withoutDoc": missing,
	})
	return out
}

// Assemble validates each target independently. Targets with no or blank
// markdown, an invalid link or invalid metadata are skipped.
func (h *Handler) Assemble(targets []models.ScrapeTarget) []models.ScrapeDataPoint {
	points := make([]models.ScrapeDataPoint, 0, len(targets))
	for _, t := range targets {
		if reason := rejectReason(t); reason != "" {
			metrics.DroppedRecords.WithLabelValues(TaskType, reason).Inc()
			h.logger.Warn("skipping target", map[string]interface{}{
				"link":   t.Link,
				"reason": reason,
			})
			continue
		}
		points = append(points, models.ScrapeDataPoint{
			Link:     t.Link,
			Metadata: t.Metadata,
			Markdown: *t.Markdown,
		})
	}
	return points
}

func rejectReason(t models.ScrapeTarget) string {
	switch {
	case t.Markdown == nil:
		return "missing_markdown"
	case strings.TrimSpace(*t.Markdown) == "":
		return "blank_markdown"
	case !validation.ValidateURL(t.Link):
		return "invalid_link"
	case !models.ValidateSearchResult(t.Metadata).Valid:
		return "invalid_metadata"
	}
	return ""
}
