// Package telemetry provides an optional, off-by-default OpenTelemetry
// tracing hook for the high-level client: a thin span-per-call wrapper, not
// an observability platform.
//
// Grounded on the teacher's pkg/telemetry/{settings,tracer,span}.go.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const TracerName = "llmkit"

// Settings configures telemetry. Telemetry is disabled by default.
type Settings struct {
	IsEnabled    bool
	RecordInputs bool
	FunctionID   string
	Tracer       trace.Tracer
}

func GetTracer(s *Settings) trace.Tracer {
	if s == nil || !s.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer(TracerName)
}

// StartGenerateSpan starts a span for one Generate call and returns it
// along with a context carrying it.
func StartGenerateSpan(ctx context.Context, s *Settings, model string) (context.Context, trace.Span) {
	tracer := GetTracer(s)
	attrs := []attribute.KeyValue{attribute.String("llmkit.model", model)}
	if s != nil && s.FunctionID != "" {
		attrs = append(attrs, attribute.String("llmkit.function_id", s.FunctionID))
	}
	return tracer.Start(ctx, "llmkit.generate", trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) on span and closes it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
