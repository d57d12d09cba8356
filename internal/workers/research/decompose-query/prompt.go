// internal/workers/research/decompose-query/prompt.go
package decomposequery

import "strings"

const promptTemplate = `You are a professional-grade research assistant designed to generate **efficient, Google-searchable queries**
from a user's question. Your task is to break down the user query into **3 to 6 concise and highly specific search queries**,
prioritized from **most relevant to least**, formatted exactly as shown.

### Format Rules:
- Only output a plain bullet list of keyword-style search queries
- Each bullet must start with a dash and a space (` + "`- `" + `)
- No quotes, no numbering, no headings
- No sentences or explanations. Use **compact, high-impact keyword phrases**
- Return **at least 3**, preferably 4 to 6 if the query is broad

### Each query MUST:
- Be self-contained and independently Google-searchable
- Be specific, scoped, and use **relevant keywords**
- Avoid vague or speculative language (no "how can I", "is it possible", "could it be...")
- Target different useful angles of the original query
- Reflect **descending order of relevance**, most useful ones first

### Example:

User Query:
"""can you tell me about the top trending actors?"""

Sub-Queries:
- most popular actors 2024
- trending actors IMDb
- highest grossing actors this year
- actors with most social media followers

---

Now respond to the following user query:

User Query:
"""{{QUERY}}"""

Sub-Queries:`

// BuildPrompt embeds the user query in the decomposition prompt.
func BuildPrompt(query string) string {
	return strings.Replace(promptTemplate, "{{QUERY}}", query, 1)
}
