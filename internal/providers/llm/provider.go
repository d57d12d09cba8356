// Package llm holds the language-model capability used for query
// decomposition and answer synthesis.
package llm

import (
	"context"
	"errors"
)

// Provider turns one text prompt into one text completion.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("LLM_EMPTY_COMPLETION")

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
