// Package observe holds the OpenTelemetry instruments recorded by the
// daemon and the Prometheus bridge that exposes them.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/charmbracelet/readaloud"

// Metrics holds every instrument. All methods are safe for concurrent use.
type Metrics struct {
	// Sessions counts reading sessions by effective provider.
	Sessions metric.Int64Counter

	// Chunks counts synthesized chunks by format.
	Chunks metric.Int64Counter

	// ChunkFailures counts chunks that could not be synthesized or queued.
	ChunkFailures metric.Int64Counter

	// Fallbacks counts sessions that switched to local speech after a
	// remote failure.
	Fallbacks metric.Int64Counter

	// SynthesisDuration is the latency of one remote synthesis call.
	SynthesisDuration metric.Float64Histogram

	// CacheLookups counts audio cache lookups by result.
	CacheLookups metric.Int64Counter

	// QueueLength is the number of items waiting in the playback engine.
	QueueLength metric.Int64Gauge
}

var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("readaloud.sessions",
		metric.WithDescription("Reading sessions started, by provider."),
	); err != nil {
		return nil, err
	}
	if met.Chunks, err = m.Int64Counter("readaloud.chunks",
		metric.WithDescription("Chunks synthesized, by format."),
	); err != nil {
		return nil, err
	}
	if met.ChunkFailures, err = m.Int64Counter("readaloud.chunk.failures",
		metric.WithDescription("Chunks that failed to synthesize or queue."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("readaloud.fallbacks",
		metric.WithDescription("Sessions that fell back to local speech."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("readaloud.synthesis.duration",
		metric.WithDescription("Latency of remote speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("readaloud.cache.lookups",
		metric.WithDescription("Audio cache lookups, by result."),
	); err != nil {
		return nil, err
	}
	if met.QueueLength, err = m.Int64Gauge("readaloud.queue.length",
		metric.WithDescription("Items waiting in the playback queue."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns instruments that record nothing.
func Noop() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordSession counts a session started with provider.
func (m *Metrics) RecordSession(ctx context.Context, provider string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordChunk counts a synthesized chunk and its latency.
func (m *Metrics) RecordChunk(ctx context.Context, format string, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("format", format))
	m.Chunks.Add(ctx, 1, attrs)
	m.SynthesisDuration.Record(ctx, took.Seconds(), attrs)
}

// RecordChunkFailure counts a chunk that failed at stage.
func (m *Metrics) RecordChunkFailure(ctx context.Context, stage string) {
	m.ChunkFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFallback counts a switch to local speech.
func (m *Metrics) RecordFallback(ctx context.Context) {
	m.Fallbacks.Add(ctx, 1)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordQueueLength sets the playback queue gauge.
func (m *Metrics) RecordQueueLength(ctx context.Context, n int) {
	m.QueueLength.Record(ctx, int64(n))
}
