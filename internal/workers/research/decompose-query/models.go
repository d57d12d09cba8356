// internal/workers/research/decompose-query/models.go
package decomposequery

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	SubQueries []string `json:"subQueries"`
	// Failed is set when SubQueries holds only the failure sentinel.
	Failed bool `json:"failed"`
}
