package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan. Until it is called spans
// are not recorded.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a child span of ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func activeSpan(ctx context.Context) (trace.Span, bool) {
	span := trace.SpanFromContext(ctx)
	return span, tracer != nil && span.SpanContext().IsValid()
}

// Inject adds the W3C trace headers of ctx to headers for an outgoing call.
func Inject(ctx context.Context, headers map[string]string) {
	if _, ok := activeSpan(ctx); !ok {
		return
	}
	propagation.TraceContext{}.Inject(ctx, propagation.MapCarrier(headers))
}

func GetTraceID(ctx context.Context) string {
	span, ok := activeSpan(ctx)
	if !ok {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
