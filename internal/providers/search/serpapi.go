package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"research-workers/internal/common/config"
	httpclient "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"
)

// SerpAPI queries the SerpAPI search.json endpoint.
type SerpAPI struct {
	client *httpclient.Client
	cfg    config.SerpAPIConfig
	logger logger.Logger
}

type serpResponse struct {
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	Error          string                   `json:"error"`
	OrganicResults []map[string]interface{} `json:"organic_results"`
}

func NewSerpAPI(cfg config.SerpAPIConfig, log logger.Logger) *SerpAPI {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SerpAPI{
		client: httpclient.NewClient(timeout, httpclient.WithRetries(2, 250*time.Millisecond)),
		cfg:    cfg,
		logger: log.With(map[string]interface{}{"provider": "serpapi"}),
	}
}

func (s *SerpAPI) buildURL(query string, limit int) string {
	params := url.Values{}
	params.Set("engine", s.cfg.Engine)
	params.Set("q", query)
	params.Set("api_key", s.cfg.APIKey)
	if s.cfg.Location != "" {
		params.Set("location", s.cfg.Location)
	}
	if s.cfg.GoogleDomain != "" {
		params.Set("google_domain", s.cfg.GoogleDomain)
	}
	if s.cfg.Country != "" {
		params.Set("gl", s.cfg.Country)
	}
	if s.cfg.Language != "" {
		params.Set("hl", s.cfg.Language)
	}
	if limit > 0 {
		params.Set("num", strconv.Itoa(limit))
	}
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/search.json?" + params.Encode()
}

// Search validates every organic result against the search result schema
// before decoding it. Invalid results are dropped and counted.
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	var resp serpResponse
	if err := s.client.GetJSON(ctx, s.buildURL(query, limit), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if resp.Error != "" && len(resp.OrganicResults) == 0 {
		// SerpAPI reports "no results" through the error field with a 200.
		s.logger.Warn("serpapi returned no organic results", map[string]interface{}{
			"query":  query,
			"reason": resp.Error,
		})
		return []models.SearchResult{}, nil
	}

	results := make([]models.SearchResult, 0, len(resp.OrganicResults))
	for i, raw := range resp.OrganicResults {
		if res := models.ValidateSearchResult(raw); !res.Valid {
			metrics.DroppedRecords.WithLabelValues("search", "invalid_result").Inc()
			s.logger.Warn("dropping invalid search result", map[string]interface{}{
				"query":  query,
				"index":  i,
				"errors": res.GetErrorMessages(),
			})
			continue
		}

		r, err := decodeResult(raw)
		if err != nil {
			metrics.DroppedRecords.WithLabelValues("search", "decode_failed").Inc()
			s.logger.Warn("dropping undecodable search result", map[string]interface{}{
				"query": query,
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		results = append(results, r)
		if limit > 0 && len(results) == limit {
			break
		}
	}

	return results, nil
}

func decodeResult(raw map[string]interface{}) (models.SearchResult, error) {
	var r models.SearchResult
	data, err := json.Marshal(raw)
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(data, &r)
	return r, err
}
