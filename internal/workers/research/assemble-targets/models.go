// internal/workers/research/assemble-targets/models.go
package assembletargets

import "research-workers/internal/models"

type Input struct {
	Targets  []models.ScrapeTarget `json:"targets"`
	Contents map[string]string     `json:"contents"`
}

type Output struct {
	Targets    []models.ScrapeTarget    `json:"targets"`
	DataPoints []models.ScrapeDataPoint `json:"dataPoints"`
}
