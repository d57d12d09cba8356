package models

import (
	"strings"
)

// SearchResult is one organic result as returned by the search provider.
// Field names follow the SerpAPI organic_results payload.
type SearchResult struct {
	Position                *int     `json:"position"`
	Title                   string   `json:"title"`
	Link                    string   `json:"link"`
	RedirectLink            *string  `json:"redirect_link"`
	DisplayedLink           string   `json:"displayed_link,omitempty"`
	Favicon                 *string  `json:"favicon"`
	Snippet                 string   `json:"snippet,omitempty"`
	SnippetHighlightedWords []string `json:"snippet_highlighted_words,omitempty"`
	Source                  string   `json:"source,omitempty"`
}

// ScrapeTarget pairs a URL chosen for crawling with the search metadata
// that produced it. Markdown is filled in once the crawl completes.
type ScrapeTarget struct {
	Link     string       `json:"link"`
	Metadata SearchResult `json:"metadata"`
	Markdown *string      `json:"markdown,omitempty"`
}

// HasContent reports whether the target carries non-blank markdown.
func (t ScrapeTarget) HasContent() bool {
	return t.Markdown != nil && strings.TrimSpace(*t.Markdown) != ""
}

// ScrapeDataPoint is a validated target that is ready for synthesis.
type ScrapeDataPoint struct {
	Link     string       `json:"link"`
	Metadata SearchResult `json:"metadata"`
	Markdown string       `json:"markdown"`
}

// Website is one cited source in a synthesized answer.
type Website struct {
	FaviconURL string `json:"favicon_url"`
	Link       string `json:"link"`
	Snippet    string `json:"snippet"`
}

// SynthesizedAnswer is the structured answer returned to the user.
type SynthesizedAnswer struct {
	DetailedAnalysis string    `json:"detailed_analysis"`
	Websites         []Website `json:"websites"`
	Videos           []string  `json:"videos"`
}

// Normalize replaces nil slices with empty ones so the JSON form always
// carries [] rather than null.
func (a *SynthesizedAnswer) Normalize() *SynthesizedAnswer {
	if a.Websites == nil {
		a.Websites = []Website{}
	}
	if a.Videos == nil {
		a.Videos = []string{}
	}
	return a
}

// SearchAudit is the record persisted for every searched sub-query.
type SearchAudit struct {
	Query  string         `json:"query"`
	Output []SearchResult `json:"output"`
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}

// IntPtr is a small helper for optional int fields.
func IntPtr(i int) *int {
	return &i
}
