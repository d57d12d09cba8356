// Package search holds the web search capability and its SerpAPI and
// cached implementations.
package search

import (
	"context"
	"errors"

	"research-workers/internal/models"
)

// Provider returns ranked organic results for a query. Implementations
// return at most limit results, best first.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

var ErrSearchFailed = errors.New("SEARCH_FAILED")
