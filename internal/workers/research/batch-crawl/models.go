// internal/workers/research/batch-crawl/models.go
package batchcrawl

import "research-workers/internal/models"

type Input struct {
	URLs []string `json:"urls"`
}

type Output struct {
	Job *models.BatchJob `json:"job"`
	// Contents maps each document's reported URL to its markdown.
	Contents map[string]string `json:"contents"`
}
