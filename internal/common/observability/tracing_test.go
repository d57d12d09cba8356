package observability

import (
	"context"
	"testing"

	"research-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(config.TracingConfig{Enabled: false}, "svc", "v0")
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestNewTracerProvider_InProcess(t *testing.T) {
	tp, err := NewTracerProvider(config.TracingConfig{Enabled: true, SampleRatio: 5}, "svc", "v0")
	require.NoError(t, err)
	require.NotNil(t, tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
}

func TestStartSpan_RecordsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	o := &Observability{tracerProvider: tp, tracer: tp.Tracer("test")}
	_, span := o.StartSpan(context.Background(), "decompose")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "decompose", ended[0].Name())
}

func TestNilObservability_IsNoOp(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		ctx, span := o.StartSpan(context.Background(), "noop")
		span.End()
		o.RecordQueryProcessed(ctx, "success")
		o.Shutdown()
	})
}
