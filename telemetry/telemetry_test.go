package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGetTracerReturnsNoopWhenDisabled(t *testing.T) {
	tracer := GetTracer(&Settings{IsEnabled: false})
	require.NotNil(t, tracer)

	_, span := tracer.Start(t.Context(), "should-not-record")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestGetTracerReturnsNilSettingsAsNoop(t *testing.T) {
	tracer := GetTracer(nil)
	require.NotNil(t, tracer)
}

func TestStartGenerateSpanRecordsModelAttribute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(t.Context())

	settings := &Settings{IsEnabled: true, FunctionID: "chat-1", Tracer: tp.Tracer(TracerName)}
	_, span := StartGenerateSpan(t.Context(), settings, "gpt-4o")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "llmkit.generate", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("llmkit.model", "gpt-4o"))
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(t.Context())

	_, span := tp.Tracer(TracerName).Start(t.Context(), "op")
	EndSpan(span, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "boom", spans[0].Status().Description)
}
