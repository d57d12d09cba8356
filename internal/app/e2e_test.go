package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"research-workers/internal/api"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	processquery "research-workers/internal/workers/research/process-query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake upstreams
// ==========================

// upstream serves Gemini, SerpAPI and Firecrawl from one httptest server.
type upstream struct {
	mu          sync.Mutex
	crawlStatus string
	searched    []string
	crawled     []string
}

func (u *upstream) gemini(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	text := "```json\n" + `{"detailed_analysis": "## Summary\nEVs are rated highly in crash tests.", "websites": [{"favicon_url": "", "link": "https://host0.example.com/p0", "snippet": "ratings"}]}` + "\n```"
	if strings.Contains(string(body), "Sub-Queries:") {
		text = "- ev crash test ratings 2024\n- ev battery fire statistics\n- ev driver assistance safety features"
	}

	resp := map[string]interface{}{
		"candidates": []interface{}{map[string]interface{}{
			"content": map[string]interface{}{
				"role":  "model",
				"parts": []interface{}{map[string]interface{}{"text": text}},
			},
			"finishReason": "STOP",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (u *upstream) serpapi(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	u.mu.Lock()
	i := len(u.searched)
	u.searched = append(u.searched, q)
	u.mu.Unlock()

	var results []map[string]interface{}
	for j := 0; j < 3; j++ {
		results = append(results, map[string]interface{}{
			"position": j + 1,
			"title":    fmt.Sprintf("Result %d-%d", i, j),
			"link":     fmt.Sprintf("https://host%d.example.com/p%d", i, j),
			"favicon":  "https://serpapi.com/favicon.png",
			"snippet":  "about " + q,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"organic_results": results})
}

func (u *upstream) firecrawlSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	u.mu.Lock()
	u.crawled = req.URLs
	u.mu.Unlock()
	_, _ = io.WriteString(w, `{"success": true, "id": "batch-e2e"}`)
}

func (u *upstream) firecrawlStatus(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var data []map[string]interface{}
	for k, link := range u.crawled {
		doc := map[string]interface{}{"metadata": map[string]interface{}{"sourceURL": link, "title": "page"}}
		if k != len(u.crawled)-1 {
			doc["markdown"] = "# Findings\ncontent from " + link
		}
		data = append(data, doc)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    u.crawlStatus,
		"total":     len(u.crawled),
		"completed": len(u.crawled),
		"data":      data,
	})
}

func newUpstream(t *testing.T, crawlStatus string) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{crawlStatus: crawlStatus}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search.json", u.serpapi)
	mux.HandleFunc("POST /v1/batch/scrape", u.firecrawlSubmit)
	mux.HandleFunc("GET /v1/batch/scrape/{id}", u.firecrawlStatus)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ":generateContent") {
			u.gemini(w, r)
			return
		}
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return u, server
}

func e2eConfig(t *testing.T, base string) *config.Config {
	cfg := createTestConfig(t)
	cfg.APIs.GenAI.BaseURL = base
	cfg.APIs.GenAI.Timeout = 5000
	cfg.APIs.SerpAPI.BaseURL = base
	cfg.APIs.SerpAPI.Timeout = 5000
	cfg.APIs.Crawl = config.CrawlConfig{Backend: "firecrawl", BaseURL: base, APIKey: "fc-key", Timeout: 5000}
	return cfg
}

func askAPI(t *testing.T, a *App, query string) (int, map[string]interface{}) {
	t.Helper()
	server := httptest.NewServer(api.NewServer(a.Pipeline, processquery.ToStandardError, "agent-key", logger.NewTestLogger(t)).Routes())
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/ask/?query="+url.QueryEscape(query), nil)
	require.NoError(t, err)
	req.Header.Set(api.APIKeyHeader, "agent-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// ==========================
// End-to-end
// ==========================

func TestEndToEnd_AskThroughAPI(t *testing.T) {
	u, server := newUpstream(t, "completed")
	cfg := e2eConfig(t, server.URL)

	a, err := Build(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer a.Close()

	status, body := askAPI(t, a, "Are electric vehicles safe?")
	require.Equal(t, http.StatusOK, status, "body: %v", body)

	answer := body["answer"].(map[string]interface{})
	assert.Contains(t, answer["detailed_analysis"], "crash tests")
	assert.Equal(t, []interface{}{}, answer["videos"])

	assert.Len(t, u.searched, 3)
	assert.Len(t, u.crawled, 6)

	for dir, want := range map[string]int{
		"serpai_folder":    3,
		"precrawl_results": 1,
		"final_results":    1,
		"user_response":    1,
	} {
		files, err := filepath.Glob(filepath.Join(cfg.Audit.RootDir, dir, "*.json"))
		require.NoError(t, err)
		assert.Len(t, files, want, dir)
	}
}

func TestEndToEnd_CrawlFailure(t *testing.T) {
	_, server := newUpstream(t, "failed")
	cfg := e2eConfig(t, server.URL)

	a, err := Build(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer a.Close()

	status, body := askAPI(t, a, "Are electric vehicles safe?")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "CRAWL_JOB_INCOMPLETE", body["code"])

	files, err := filepath.Glob(filepath.Join(cfg.Audit.RootDir, "user_response", "*.json"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
