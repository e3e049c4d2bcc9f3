// Package observe provides application-wide observability primitives for
// tremord: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tremord metrics.
const meterName = "github.com/oscillab/tremord"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ExtractDuration tracks feature-extraction latency. Use with attribute:
	//   attribute.String("modality", "motion"|"voice")
	ExtractDuration metric.Float64Histogram

	// PredictDuration tracks classifier inference latency by modality.
	PredictDuration metric.Float64Histogram

	// --- Counters ---

	// WindowsProcessed counts analysis windows run through a pipeline. Use
	// with attributes:
	//   attribute.String("modality", ...), attribute.String("mode", "request"|"live"|"batch")
	WindowsProcessed metric.Int64Counter

	// Verdicts counts emitted verdicts by label. Use with attributes:
	//   attribute.String("modality", ...), attribute.String("label", ...)
	Verdicts metric.Int64Counter

	// GateOverrides counts decision-gate class overrides.
	GateOverrides metric.Int64Counter

	// RejectedSamples counts malformed sample lines dropped from live
	// streams.
	RejectedSamples metric.Int64Counter

	// --- Error counters ---

	// ExtractionFailures counts windows/clips whose features could not be
	// extracted. Use with attribute:
	//   attribute.String("modality", ...)
	ExtractionFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of live detection streams (WebSocket
	// connections plus MQTT subscriptions) currently being served.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-window DSP and inference latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ExtractDuration, err = m.Float64Histogram("tremord.extract.duration",
		metric.WithDescription("Latency of per-window feature extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PredictDuration, err = m.Float64Histogram("tremord.predict.duration",
		metric.WithDescription("Latency of classifier inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WindowsProcessed, err = m.Int64Counter("tremord.windows.processed",
		metric.WithDescription("Total analysis windows processed by modality and mode."),
	); err != nil {
		return nil, err
	}
	if met.Verdicts, err = m.Int64Counter("tremord.verdicts",
		metric.WithDescription("Total verdicts emitted by modality and label."),
	); err != nil {
		return nil, err
	}
	if met.GateOverrides, err = m.Int64Counter("tremord.gate.overrides",
		metric.WithDescription("Total decision-gate class overrides."),
	); err != nil {
		return nil, err
	}
	if met.RejectedSamples, err = m.Int64Counter("tremord.samples.rejected",
		metric.WithDescription("Total malformed sample lines dropped from live streams."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ExtractionFailures, err = m.Int64Counter("tremord.extract.failures",
		metric.WithDescription("Total windows or clips whose features could not be extracted."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("tremord.active_streams",
		metric.WithDescription("Number of live detection streams currently served."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("tremord.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWindow records one processed analysis window.
func (m *Metrics) RecordWindow(ctx context.Context, modality, mode string) {
	m.WindowsProcessed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("modality", modality),
			attribute.String("mode", mode),
		),
	)
}

// RecordVerdict records one emitted verdict.
func (m *Metrics) RecordVerdict(ctx context.Context, modality, label string) {
	m.Verdicts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("modality", modality),
			attribute.String("label", label),
		),
	)
}

// RecordExtractionFailure records one window or clip whose features could
// not be extracted.
func (m *Metrics) RecordExtractionFailure(ctx context.Context, modality string) {
	m.ExtractionFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("modality", modality)),
	)
}
