package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"research-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiResponse(text string) string {
	body := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return g
}

func TestGemini_Generate(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "electric vehicles")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, geminiResponse("- ev safety ratings 2024\n- ev crash tests\n- ev adas features"))
	})

	out, err := g.Generate(context.Background(), "tell me about electric vehicles")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(out, "\n")))
}

func TestGemini_Generate_EmptyCompletion(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, geminiResponse("   "))
	})

	_, err := g.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGemini_Generate_UpstreamError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := g.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini generate")
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{}, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		return strings.ToUpper(prompt), nil
	})
	out, err := p.Generate(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)
}
