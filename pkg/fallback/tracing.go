package fallback

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/yitzuliu/tracker/pkg/fallback")

// startSpan begins a span for one stage of the fallback protocol and returns
// the span-scoped context plus a function that records the outcome (nil for
// success) and ends the span. No exporter is wired here; with no
// TracerProvider registered, otel.Tracer returns a no-op tracer, so this is
// free until an operator configures one.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
