// Package observe provides application-wide observability primitives for
// leafdoc: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all leafdoc metrics.
const meterName = "github.com/verdantlabs/leafdoc"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ClassifyDuration tracks symptom text classification latency.
	ClassifyDuration metric.Float64Histogram

	// ReconcileDuration tracks evidence reconciliation latency.
	ReconcileDuration metric.Float64Histogram

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// VisionDuration tracks image classification latency.
	VisionDuration metric.Float64Histogram

	// --- Counters ---

	// Diagnoses counts completed diagnoses. Use with attributes:
	//   attribute.String("source", ...), attribute.String("level", ...), attribute.String("state", ...)
	Diagnoses metric.Int64Counter

	// LookupMisses counts resolved labels that had no knowledge-base record.
	LookupMisses metric.Int64Counter

	// ChatMessages counts chatbot exchanges. Use with attribute:
	//   attribute.String("kind", ...) — "rule" or "llm".
	ChatMessages metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attribute:
	//   attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveChatSessions tracks the number of open chat websocket sessions.
	ActiveChatSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// sub-millisecond buckets cover the pure in-process stages (classify,
// reconcile); the upper buckets cover model-provider round trips.
var latencyBuckets = []float64{
	0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ClassifyDuration, err = m.Float64Histogram("leafdoc.classify.duration",
		metric.WithDescription("Latency of symptom text classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReconcileDuration, err = m.Float64Histogram("leafdoc.reconcile.duration",
		metric.WithDescription("Latency of evidence reconciliation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("leafdoc.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VisionDuration, err = m.Float64Histogram("leafdoc.vision.duration",
		metric.WithDescription("Latency of image classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Diagnoses, err = m.Int64Counter("leafdoc.diagnoses",
		metric.WithDescription("Total diagnoses by source, confidence level, and terminal state."),
	); err != nil {
		return nil, err
	}
	if met.LookupMisses, err = m.Int64Counter("leafdoc.knowledge.lookup_misses",
		metric.WithDescription("Total resolved labels missing from the knowledge base."),
	); err != nil {
		return nil, err
	}
	if met.ChatMessages, err = m.Int64Counter("leafdoc.chat.messages",
		metric.WithDescription("Total chatbot exchanges by answer kind."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("leafdoc.provider.requests",
		metric.WithDescription("Total provider API requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("leafdoc.provider.errors",
		metric.WithDescription("Total provider errors by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveChatSessions, err = m.Int64UpDownCounter("leafdoc.chat.active_sessions",
		metric.WithDescription("Number of open chat websocket sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("leafdoc.http.request.duration",
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

// ObserveClassify records one symptom classification duration.
func (m *Metrics) ObserveClassify(ctx context.Context, d time.Duration) {
	m.ClassifyDuration.Record(ctx, d.Seconds())
}

// ObserveReconcile records one evidence reconciliation duration.
func (m *Metrics) ObserveReconcile(ctx context.Context, d time.Duration) {
	m.ReconcileDuration.Record(ctx, d.Seconds())
}

// ObserveTranscribe records one speech-to-text round trip duration.
func (m *Metrics) ObserveTranscribe(ctx context.Context, d time.Duration) {
	m.TranscribeDuration.Record(ctx, d.Seconds())
}

// ObserveVision records one image classification round trip duration.
func (m *Metrics) ObserveVision(ctx context.Context, d time.Duration) {
	m.VisionDuration.Record(ctx, d.Seconds())
}

// RecordDiagnosis records a completed diagnosis with the standard attribute
// set.
func (m *Metrics) RecordDiagnosis(ctx context.Context, source, level, state string) {
	m.Diagnoses.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("level", level),
			attribute.String("state", state),
		),
	)
}

// RecordLookupMiss records a knowledge-base miss for a resolved label.
func (m *Metrics) RecordLookupMiss(ctx context.Context) {
	m.LookupMisses.Add(ctx, 1)
}

// RecordChatMessage records one chatbot exchange by answer kind.
func (m *Metrics) RecordChatMessage(ctx context.Context, kind string) {
	m.ChatMessages.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// ChatSessionStarted increments the active chat session gauge.
func (m *Metrics) ChatSessionStarted(ctx context.Context) {
	m.ActiveChatSessions.Add(ctx, 1)
}

// ChatSessionEnded decrements the active chat session gauge.
func (m *Metrics) ChatSessionEnded(ctx context.Context) {
	m.ActiveChatSessions.Add(ctx, -1)
}

// RecordProviderRequest records a provider API call with its status.
func (m *Metrics) RecordProviderRequest(ctx context.Context, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error by kind.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
