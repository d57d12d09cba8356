package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndScoping(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	scoped := log.With(map[string]interface{}{"taskId": "abc"})
	scoped.Warn("no markdown for target", map[string]interface{}{
		"url": "https://example.com",
		"err": errors.New("boom"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "abc", ctx["taskId"])
		assert.Equal(t, "https://example.com", ctx["url"])
		assert.Equal(t, "boom", ctx["err"])
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	}
}

func TestZapAdapter_WithError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core)).WithError(errors.New("crawl failed"))

	log.Error("stage failed", nil)
	log.Debug("filtered out", nil)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "crawl failed", entries[0].ContextMap()["error"])
	}
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.WithFields(map[string]interface{}{"a": 1}).Info("ignored", nil)
	})
}
