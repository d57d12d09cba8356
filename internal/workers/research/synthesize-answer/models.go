// internal/workers/research/synthesize-answer/models.go
package synthesizeanswer

import "research-workers/internal/models"

type Input struct {
	Query      string                   `json:"query"`
	DataPoints []models.ScrapeDataPoint `json:"dataPoints"`
}

type Output struct {
	Answer *models.SynthesizedAnswer `json:"answer"`
}
