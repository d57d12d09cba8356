package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	BaseURL string
	Timeout time.Duration
}

// Gemini calls the Gemini API through the google.golang.org/genai SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  log.With(map[string]interface{}{"provider": "gemini", "model": cfg.Model}),
	}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		nil,
	)
	if err != nil {
		metrics.LLMCalls.WithLabelValues("generate", "error").Inc()
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.LLMCalls.WithLabelValues("generate", "empty").Inc()
		return "", ErrEmptyCompletion
	}

	metrics.LLMCalls.WithLabelValues("generate", "success").Inc()
	g.logger.Debug("gemini completion received", map[string]interface{}{
		"promptChars":     len(prompt),
		"completionChars": len(text),
		"durationMs":      time.Since(start).Milliseconds(),
	})
	return text, nil
}
