// Package observe provides the observability primitives of the read-along
// tutor: OpenTelemetry metrics, tracing helpers, trace-aware logging and an
// HTTP middleware tying them together.
//
// Metrics go through the OpenTelemetry Metrics API and are exported to
// Prometheus by [InitProvider]. [DefaultMetrics] returns a lazily created
// package-level instance; tests should build their own with [NewMetrics] and
// a private [metric.MeterProvider].
package observe

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for every tutor instrument.
const meterName = "github.com/MrWong99/leeconmigo"

// Attempt results recorded by [Metrics.RecordAttempt].
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
)

// Metrics holds the OpenTelemetry instruments of the application. All
// fields are safe for concurrent use.
type Metrics struct {
	// Attempts counts completed listening attempts by result
	// (success, failure, empty).
	Attempts metric.Int64Counter

	// Hints counts hint escalations by level ("1", "2", "3").
	Hints metric.Int64Counter

	// PhrasesCompleted counts phrases read successfully.
	PhrasesCompleted metric.Int64Counter

	// SongsCompleted counts sessions that reached the end of the song.
	SongsCompleted metric.Int64Counter

	// EvaluationDuration tracks how long one transcript evaluation takes.
	EvaluationDuration metric.Float64Histogram

	// ActiveSessions tracks the number of connected tutor sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ProviderRequests counts STT/TTS provider calls. Attributes: provider,
	// kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed provider calls. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// ProviderDuration tracks provider call latency. Attributes: provider, kind.
	ProviderDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request latency. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds for provider calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// evaluationBuckets are histogram boundaries in seconds for in-process
// evaluation, which is expected to stay well below a millisecond.
var evaluationBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Attempts, err = m.Int64Counter("leeconmigo.attempts",
		metric.WithDescription("Completed listening attempts by result."),
	); err != nil {
		return nil, err
	}
	if met.Hints, err = m.Int64Counter("leeconmigo.hints",
		metric.WithDescription("Hint escalations by level."),
	); err != nil {
		return nil, err
	}
	if met.PhrasesCompleted, err = m.Int64Counter("leeconmigo.phrases.completed",
		metric.WithDescription("Phrases read successfully."),
	); err != nil {
		return nil, err
	}
	if met.SongsCompleted, err = m.Int64Counter("leeconmigo.songs.completed",
		metric.WithDescription("Sessions that reached the end of the song."),
	); err != nil {
		return nil, err
	}
	if met.EvaluationDuration, err = m.Float64Histogram("leeconmigo.evaluation.duration",
		metric.WithDescription("Latency of one transcript evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(evaluationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("leeconmigo.active_sessions",
		metric.WithDescription("Number of connected tutor sessions."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("leeconmigo.provider.requests",
		metric.WithDescription("Provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("leeconmigo.provider.errors",
		metric.WithDescription("Provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("leeconmigo.provider.duration",
		metric.WithDescription("Latency of provider API calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("leeconmigo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it from
// [otel.GetMeterProvider] on first use. It panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAttempt increments the attempt counter for result.
func (m *Metrics) RecordAttempt(ctx context.Context, result string) {
	m.Attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordHint increments the hint counter for level.
func (m *Metrics) RecordHint(ctx context.Context, level int) {
	m.Hints.Add(ctx, 1, metric.WithAttributes(attribute.String("level", strconv.Itoa(level))))
}

// RecordProviderCall records one provider request with its latency. A
// non-nil err additionally increments the error counter.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, kind string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		))
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.ProviderDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}
