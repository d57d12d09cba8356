package models

import (
	"research-workers/internal/common/validation"
)

const searchResultSchemaJSON = `{
  "type": "object",
  "required": ["title", "link"],
  "properties": {
    "position": {"type": ["integer", "null"]},
    "title": {"type": "string"},
    "link": {"type": "string", "format": "uri", "pattern": "^https?://[^\\s/$.?#][^\\s]*$"},
    "redirect_link": {"type": ["string", "null"], "format": "uri", "pattern": "^https?://"},
    "displayed_link": {"type": ["string", "null"]},
    "favicon": {"type": ["string", "null"], "format": "uri", "pattern": "^https?://"},
    "snippet": {"type": ["string", "null"]},
    "snippet_highlighted_words": {"type": ["array", "null"], "items": {"type": "string"}},
    "source": {"type": ["string", "null"]}
  }
}`

// SearchResultSchema validates organic results before they are decoded
// into SearchResult and again when a target is promoted to a data point.
var SearchResultSchema = validation.MustCompile("search_result", searchResultSchemaJSON)

// ValidateSearchResult checks a raw or typed search result.
func ValidateSearchResult(doc interface{}) *validation.ValidationResult {
	return SearchResultSchema.Validate(doc)
}
