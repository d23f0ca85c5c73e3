package middleware_test

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/nulone/mcp-backpressure/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), &mw.Request{Name: "op"}, func(context.Context) error { return nil })

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "backpressure.handler.duration")
	if metric == nil {
		t.Fatal("backpressure.handler.duration metric not found")
	}

	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64] data type")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points recorded for duration")
	}
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("count = %d, want 1", hist.DataPoints[0].Count)
	}
}

func TestMetrics_RecordsExecutionsSuccess(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), &mw.Request{Name: "op"}, func(context.Context) error { return nil })

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "backpressure.handler.executions")
	if metric == nil {
		t.Fatal("backpressure.handler.executions metric not found")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("expected Sum[int64] data type")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points recorded")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("value = %d, want 1", sum.DataPoints[0].Value)
	}

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "status" && attr.Value.AsString() == "ok" {
			found = true
		}
	}
	if !found {
		t.Error("expected status=ok attribute on executions counter")
	}
}

func TestMetrics_RecordsExecutionsError(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), &mw.Request{Name: "op"}, func(context.Context) error { return errors.New("boom") })

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "backpressure.handler.executions")
	if metric == nil {
		t.Fatal("backpressure.handler.executions metric not found")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("expected a recorded data point")
	}

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "status" && attr.Value.AsString() == "error" {
			found = true
		}
	}
	if !found {
		t.Error("expected status=error attribute on executions counter")
	}
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	m := mw.Metrics()

	called := false
	err := m(context.Background(), &mw.Request{Name: "op"}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}
