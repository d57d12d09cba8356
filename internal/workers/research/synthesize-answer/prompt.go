// internal/workers/research/synthesize-answer/prompt.go
package synthesizeanswer

import (
	"fmt"
	"strconv"
	"strings"

	"research-workers/internal/models"
)

const instructions = "\n---\n\n\n### INSTRUCTIONS FOR LLM\n\n" +
	"You are a precise, factual assistant. Analyze the provided markdowns and generate a structured summary strictly based on the information within them.\n\n" +
	"## OUTPUT FORMAT (Markdown-wrapped JSON) ##\n\n" +
	"```json\n" +
	`{
  "detailed_analysis": "## Overview\n...\n## Comparison\n...",
  "websites": [
    {
      "favicon_url": "https://...",
      "link": "https://...",
      "snippet": "..."
    }
  ],
  "videos": [
    "https://example.com/video1",
    "https://example.com/video2"
  ]
}` + "\n```\n\n" +
	`### FIELD DESCRIPTORS ###
- detailed_analysis: A concise (200 to 600 words) analysis in markdown format. Explain the key insights and compare, review or suggest where applicable. It must never be empty and must stay highly relevant to the user query.
- websites: An array of useful links with:
  - favicon_url: Taken from each datapoint's favicon field.
  - link: The main link from the datapoint.
  - snippet: A helpful short description based on the markdown or snippet. It must reflect actual content, not hallucinated.
- videos: If URLs in the content point to YouTube or other video platforms, return a list of those links.

### STRICT RULES ###
- Use only the content from the markdowns. DO NOT hallucinate.
- Ensure returned JSON is well-formed, Markdown-wrapped, and fully parseable.
- Do not include anything outside the code block.
`

// BuildPrompt renders the user query, one block per data point and the
// fixed output instructions.
func BuildPrompt(query string, points []models.ScrapeDataPoint) string {
	blocks := []string{fmt.Sprintf("## USER QUERY\n\n%s\n\n", query)}

	for i, dp := range points {
		m := dp.Metadata
		var b strings.Builder
		fmt.Fprintf(&b, "\n### DATAPOINT #%d\n", i+1)
		fmt.Fprintf(&b, "**Title:** %s\n", m.Title)
		fmt.Fprintf(&b, "**Link:** %s\n", m.Link)
		fmt.Fprintf(&b, "**Redirect Link:** %s\n", orNA(m.RedirectLink))
		fmt.Fprintf(&b, "**Displayed Link:** %s\n", orNAString(m.DisplayedLink))
		fmt.Fprintf(&b, "**Source:** %s\n", orNAString(m.Source))
		fmt.Fprintf(&b, "**Snippet:** %s\n", orNAString(m.Snippet))
		fmt.Fprintf(&b, "**Position:** %s\n", positionOrNA(m.Position))
		fmt.Fprintf(&b, "**Favicon:** %s\n", orNA(m.Favicon))
		fmt.Fprintf(&b, "**Highlighted Words:** %s\n", strings.Join(m.SnippetHighlightedWords, ", "))
		fmt.Fprintf(&b, "\n### MARKDOWN CONTENT\n%s\n", strings.TrimSpace(dp.Markdown))
		blocks = append(blocks, b.String())
	}

	blocks = append(blocks, instructions)
	return strings.Join(blocks, "\n")
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return orNAString(*s)
}

func orNAString(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func positionOrNA(p *int) string {
	if p == nil || *p == 0 {
		return "N/A"
	}
	return strconv.Itoa(*p)
}
