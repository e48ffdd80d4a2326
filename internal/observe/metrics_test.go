package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

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

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSession(ctx, "openai")
	m.RecordSession(ctx, "webspeech")
	m.RecordChunk(ctx, "mp3", 250*time.Millisecond)
	m.RecordChunkFailure(ctx, "background")
	m.RecordFallback(ctx)
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordCacheLookup(ctx, false)

	rm := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"readaloud.sessions", 2},
		{"readaloud.chunks", 1},
		{"readaloud.chunk.failures", 1},
		{"readaloud.fallbacks", 1},
		{"readaloud.cache.lookups", 3},
	}
	for _, tt := range tests {
		met := findMetric(rm, tt.name)
		if met == nil {
			t.Errorf("%s not recorded", tt.name)
			continue
		}
		if got := sumOf(t, met); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSynthesisHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordChunk(context.Background(), "wav", 1500*time.Millisecond)

	met := findMetric(collect(t, reader), "readaloud.synthesis.duration")
	if met == nil {
		t.Fatal("histogram not recorded")
	}
	h, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) != 1 {
		t.Fatalf("data = %T with %v", met.Data, met.Data)
	}
	if dp := h.DataPoints[0]; dp.Count != 1 || dp.Sum != 1.5 {
		t.Errorf("count/sum = %d/%v, want 1/1.5", dp.Count, dp.Sum)
	}
}

func TestQueueGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordQueueLength(context.Background(), 4)
	m.RecordQueueLength(context.Background(), 2)

	met := findMetric(collect(t, reader), "readaloud.queue.length")
	if met == nil {
		t.Fatal("gauge not recorded")
	}
	g, ok := met.Data.(metricdata.Gauge[int64])
	if !ok || len(g.DataPoints) != 1 || g.DataPoints[0].Value != 2 {
		t.Errorf("gauge = %+v, want last value 2", met.Data)
	}
}

func TestNoop(t *testing.T) {
	m := Noop()
	m.RecordSession(context.Background(), "openai")
	m.RecordQueueLength(context.Background(), 1)
}
