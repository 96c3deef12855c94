package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns Metrics backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
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

// sumByAttr returns the int64 sum data points of metric name keyed by the
// value of attribute key.
func sumByAttr(t *testing.T, rm metricdata.ResourceMetrics, name, key string) map[string]int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", name, met.Data)
	}
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestRecordAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttempt(ctx, ResultFailure)
	m.RecordAttempt(ctx, ResultFailure)
	m.RecordAttempt(ctx, ResultSuccess)
	m.RecordAttempt(ctx, ResultEmpty)

	got := sumByAttr(t, collect(t, reader), "leeconmigo.attempts", "result")
	if got[ResultFailure] != 2 || got[ResultSuccess] != 1 || got[ResultEmpty] != 1 {
		t.Errorf("attempts = %v", got)
	}
}

func TestRecordHint(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHint(ctx, 1)
	m.RecordHint(ctx, 3)
	m.RecordHint(ctx, 3)

	got := sumByAttr(t, collect(t, reader), "leeconmigo.hints", "level")
	if got["1"] != 1 || got["3"] != 2 {
		t.Errorf("hints = %v", got)
	}
}

func TestRecordProviderCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderCall(ctx, "whisper", "stt", 0.2, nil)
	m.RecordProviderCall(ctx, "whisper", "stt", 0.4, errors.New("boom"))

	rm := collect(t, reader)
	status := sumByAttr(t, rm, "leeconmigo.provider.requests", "status")
	if status["ok"] != 1 || status["error"] != 1 {
		t.Errorf("requests by status = %v", status)
	}
	errs := sumByAttr(t, rm, "leeconmigo.provider.errors", "kind")
	if errs["stt"] != 1 {
		t.Errorf("errors by kind = %v", errs)
	}

	met := findMetric(rm, "leeconmigo.provider.duration")
	if met == nil {
		t.Fatal("provider duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("provider duration data = %T", met.Data)
	}
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("duration count = %d, want 2", hist.DataPoints[0].Count)
	}
}

func TestActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 2)
	m.ActiveSessions.Add(ctx, -1)

	met := findMetric(collect(t, reader), "leeconmigo.active_sessions")
	if met == nil {
		t.Fatal("active sessions metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("active sessions = %+v, want 1", sum.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
