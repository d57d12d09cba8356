// internal/workers/research/process-query/models.go
package processquery

import "research-workers/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	TaskID string                    `json:"taskId"`
	Answer *models.SynthesizedAnswer `json:"answer"`
}

// Result is everything a run produced, for callers that need more than
// the answer.
type Result struct {
	TaskID     string
	SubQueries []string
	Targets    []models.ScrapeTarget
	DataPoints []models.ScrapeDataPoint
	Answer     *models.SynthesizedAnswer
}
