// Package errors maps pipeline failures onto stable codes shared by the
// HTTP API and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidQuery        ErrorCode = "INVALID_QUERY"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeDecompositionFailed ErrorCode = "DECOMPOSITION_FAILED"

	ErrCodeSearchFailed ErrorCode = "SEARCH_FAILED"

	ErrCodeCrawlSubmitFailed     ErrorCode = "CRAWL_SUBMIT_FAILED"
	ErrCodeCrawlPollFailed       ErrorCode = "CRAWL_POLL_FAILED"
	ErrCodeCrawlJobIncomplete    ErrorCode = "CRAWL_JOB_INCOMPLETE"
	ErrCodeCrawlExtractionFailed ErrorCode = "CRAWL_EXTRACTION_FAILED"
	ErrCodeCrawlTimeout          ErrorCode = "CRAWL_TIMEOUT"

	ErrCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"
	ErrCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// New builds a StandardError for code, wrapping cause when non-nil. The
// retryable flag is derived from the retry table.
func New(code ErrorCode, message string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidQueryError is returned for blank or missing user queries.
func NewInvalidQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuery,
		Message:   "Query must be a non-empty string",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError is returned when the api-key header does not match.
func NewUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Invalid or missing API key",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDecompositionFailedError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecompositionFailed,
		Message:   "Failed to generate sub-queries for the given user query",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSynthesisFailedError(err error) *StandardError {
	return New(ErrCodeSynthesisFailed, "Failed to synthesize an answer from the model output", err)
}

func NewInternalError(err error) *StandardError {
	return New(ErrCodeInternal, "Unexpected error", err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidQuery:          "INVALID_QUERY",
	ErrCodeDecompositionFailed:   "DECOMPOSITION_FAILED",
	ErrCodeSearchFailed:          "SEARCH_FAILED",
	ErrCodeCrawlSubmitFailed:     "CRAWL_FAILED",
	ErrCodeCrawlPollFailed:       "CRAWL_FAILED",
	ErrCodeCrawlJobIncomplete:    "CRAWL_FAILED",
	ErrCodeCrawlExtractionFailed: "CRAWL_FAILED",
	ErrCodeCrawlTimeout:          "CRAWL_TIMEOUT",
	ErrCodeLLMTimeout:            "LLM_TIMEOUT",
	ErrCodeSynthesisFailed:       "SYNTHESIS_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCrawlSubmitFailed,
		ErrCodeCrawlPollFailed:
		return 2

	case ErrCodeCrawlTimeout,
		ErrCodeLLMTimeout,
		ErrCodeSynthesisFailed:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err to a *StandardError, falling back to an
// INTERNAL_ERROR wrapper.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps a code onto the status returned by the ask endpoint.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidQuery:
		return http.StatusUnprocessableEntity
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeCrawlTimeout, ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeCrawlSubmitFailed, ErrCodeCrawlPollFailed, ErrCodeCrawlJobIncomplete,
		ErrCodeCrawlExtractionFailed, ErrCodeSynthesisFailed, ErrCodeDecompositionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CRAWL"):
		return "CRAWL"
	case strings.HasPrefix(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "SYNTHESIS") || strings.Contains(codeStr, "DECOMPOSITION"):
		return "AI"
	case strings.Contains(codeStr, "AUDIT"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNAUTHORIZED"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
