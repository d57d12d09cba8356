// internal/workers/research/search-web/handler_test.go
package searchweb

import (
	"context"
	"errors"
	"testing"
	"time"

	"research-workers/internal/common/logger"
	"research-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearch struct {
	mock.Mock
}

func (m *MockSearch) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func results(n int) []models.SearchResult {
	out := make([]models.SearchResult, n)
	for i := range out {
		out[i] = models.SearchResult{
			Position: models.IntPtr(i + 1),
			Title:    "result",
			Link:     "https://example.com/" + string(rune('a'+i)),
		}
	}
	return out
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		wantLimit int
		returned  []models.SearchResult
		err       error
		wantLen   int
	}{
		{name: "default limit", input: &Input{Query: "ev"}, wantLimit: 5, returned: results(5), wantLen: 5},
		{name: "explicit limit", input: &Input{Query: "ev", Limit: 2}, wantLimit: 2, returned: results(2), wantLen: 2},
		{name: "provider over-returns", input: &Input{Query: "ev", Limit: 2}, wantLimit: 2, returned: results(4), wantLen: 2},
		{name: "provider error becomes empty", input: &Input{Query: "ev"}, wantLimit: 5, err: errors.New("rate limited"), wantLen: 0},
		{name: "nil results become empty", input: &Input{Query: "ev"}, wantLimit: 5, returned: nil, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockSearch)
			if tt.err != nil {
				m.On("Search", mock.Anything, "ev", tt.wantLimit).Return(nil, tt.err)
			} else {
				m.On("Search", mock.Anything, "ev", tt.wantLimit).Return(tt.returned, nil)
			}

			h := NewHandler(LoadConfig(), m, logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			require.NotNil(t, out.Results)
			assert.Len(t, out.Results, tt.wantLen)
			m.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_PreservesRankOrder(t *testing.T) {
	m := new(MockSearch)
	m.On("Search", mock.Anything, "ev", 3).Return(results(3), nil)

	h := NewHandler(LoadConfig(), m, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{Query: "ev", Limit: 3})

	require.NoError(t, err)
	for i, r := range out.Results {
		assert.Equal(t, i+1, *r.Position)
	}
}

func TestHandler_Execute_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	m := new(MockSearch)
	m.On("Search", mock.Anything, "ev", 5).Return(nil, context.DeadlineExceeded)

	h := NewHandler(LoadConfig(), m, logger.NewNoOpLogger())
	_, err := h.Execute(ctx, &Input{Query: "ev"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
