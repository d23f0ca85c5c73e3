package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for admission-controller
// handler tracing.
const tracerName = "github.com/nulone/mcp-backpressure"

// Tracing returns middleware that wraps handler execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with negligible overhead.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided
// tracer, for injecting a specific TracerProvider in tests or when
// multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, req *Request, next Handler) error {
		ctx, span := tracer.Start(ctx, "backpressure.handler.execute",
			trace.WithAttributes(
				attribute.String("backpressure.request.name", req.Name),
				attribute.Bool("backpressure.request.queued", req.Queued),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
