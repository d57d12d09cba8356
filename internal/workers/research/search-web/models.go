// internal/workers/research/search-web/models.go
package searchweb

import "research-workers/internal/models"

type Input struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type Output struct {
	Results []models.SearchResult `json:"results"`
}
