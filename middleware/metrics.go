package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for admission-controller
// handler metrics.
const meterName = "github.com/nulone/mcp-backpressure"

// Metrics returns middleware that records per-handler execution metrics
// using the global OTel MeterProvider. If none is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - backpressure.handler.duration (Float64Histogram): execution time
//     in seconds, with attributes request, status ("ok" or "error").
//   - backpressure.handler.executions (Int64Counter): total executions,
//     with the same attributes.
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter,
// for injecting a specific MeterProvider in tests.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, _ := meter.Float64Histogram(
		"backpressure.handler.duration",
		metric.WithDescription("Duration of handler execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"backpressure.handler.executions",
		metric.WithDescription("Total number of handler executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, req *Request, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("request", req.Name),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
