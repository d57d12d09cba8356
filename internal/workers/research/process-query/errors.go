// internal/workers/research/process-query/errors.go
package processquery

import (
	"context"
	"errors"

	apperrors "research-workers/internal/common/errors"
	batchcrawl "research-workers/internal/workers/research/batch-crawl"
	decomposequery "research-workers/internal/workers/research/decompose-query"
	synthesizeanswer "research-workers/internal/workers/research/synthesize-answer"
)

var (
	ErrDecompositionFailed = errors.New("DECOMPOSITION_FAILED")
	ErrPipelineFailed      = errors.New("PIPELINE_FAILED")
)

var codeTable = []struct {
	sentinel error
	code     apperrors.ErrorCode
	message  string
}{
	{decomposequery.ErrInvalidInput, apperrors.ErrCodeInvalidQuery, "Query must be a non-empty string"},
	{ErrDecompositionFailed, apperrors.ErrCodeDecompositionFailed, "Failed to generate sub-queries for the given user query"},
	{batchcrawl.ErrCrawlSubmitFailed, apperrors.ErrCodeCrawlSubmitFailed, "Batch crawl could not be submitted"},
	{batchcrawl.ErrCrawlPollFailed, apperrors.ErrCodeCrawlPollFailed, "Batch crawl status could not be retrieved"},
	{batchcrawl.ErrCrawlPollExhausted, apperrors.ErrCodeCrawlTimeout, "Batch crawl did not finish in time"},
	{batchcrawl.ErrCrawlJobIncomplete, apperrors.ErrCodeCrawlJobIncomplete, "Batch crawl failed or was cancelled"},
	{batchcrawl.ErrCrawlExtractionFailed, apperrors.ErrCodeCrawlExtractionFailed, "Batch crawl returned no data"},
	{synthesizeanswer.ErrLLMTimeout, apperrors.ErrCodeLLMTimeout, "Language model timed out"},
	{synthesizeanswer.ErrSynthesisFailed, apperrors.ErrCodeSynthesisFailed, "Failed to synthesize an answer from the model output"},
}

// ToStandardError classifies a pipeline error by the stage sentinel it
// wraps. Unknown errors become INTERNAL_ERROR.
func ToStandardError(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	for _, row := range codeTable {
		if errors.Is(err, row.sentinel) {
			return apperrors.New(row.code, row.message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.ErrCodeLLMTimeout, "Query processing timed out", err)
	}
	return apperrors.NewInternalError(err)
}
