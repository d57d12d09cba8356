// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"research-workers/internal/common/config"
	apperrors "research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIKeyHeader carries the shared secret on every ask request.
const APIKeyHeader = "api-key"

// Asker answers one user query.
type Asker interface {
	ProcessQuery(ctx context.Context, query string) (*models.SynthesizedAnswer, error)
}

// Classifier maps a pipeline error onto the error taxonomy.
type Classifier func(error) *apperrors.StandardError

type Server struct {
	asker    Asker
	classify Classifier
	apiKey   string
	ready    atomic.Bool
	logger   logger.Logger
}

type askResponse struct {
	Answer *models.SynthesizedAnswer `json:"answer"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func NewServer(asker Asker, classify Classifier, apiKey string, log logger.Logger) *Server {
	if classify == nil {
		classify = apperrors.AsStandardError
	}
	return &Server{
		asker:    asker,
		classify: classify,
		apiKey:   apiKey,
		logger:   log.With(map[string]interface{}{"component": "api"}),
	}
}

// SetReady flips the /ready probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ask/{$}", s.instrument("ask", s.handleAsk))
	mux.HandleFunc("GET /health", s.instrument("health", s.handleHealth))
	mux.HandleFunc("GET /ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// HTTPServer builds the listener for Routes using the configured timeouts.
func (s *Server) HTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: config.GetDuration(cfg.ReadTimeout),
		ReadTimeout:       config.GetDuration(cfg.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.WriteTimeout),
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Invalid or missing API key"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Detail: "query must be a non-empty string",
			Code:   string(apperrors.ErrCodeInvalidQuery),
		})
		return
	}

	answer, err := s.asker.ProcessQuery(r.Context(), query)
	if err != nil {
		stdErr := s.classify(err)
		s.logger.Error("query failed", map[string]interface{}{
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
		writeJSON(w, apperrors.HTTPStatus(stdErr.Code), errorResponse{
			Detail: stdErr.Message,
			Code:   string(stdErr.Code),
		})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

// authorized compares the api-key header in constant time. An unset server
// key rejects every request.
func (s *Server) authorized(r *http.Request) bool {
	got := r.Header.Get(APIKeyHeader)
	if s.apiKey == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		if route == "ask" {
			s.logger.Info("request served", map[string]interface{}{
				"route":      route,
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
			})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
