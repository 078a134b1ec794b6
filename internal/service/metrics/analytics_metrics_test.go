package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAnalyticsMetrics(t *testing.T) {
	m := NewAnalyticsMetrics(prometheus.NewRegistry())
	m.Observe("anomalies", 120*time.Millisecond)
	m.Fail("anomalies", "upstream")
	m.Fail("anomalies", "upstream")
	m.Cache(true)
	m.Cache(false)
	m.Cache(false)

	if got := testutil.ToFloat64(m.errors.WithLabelValues("anomalies", "upstream")); got != 2 {
		t.Fatalf("errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheHits.WithLabelValues("miss")); got != 2 {
		t.Fatalf("misses = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.latency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}

func TestAnalyticsMetricsNilSafe(t *testing.T) {
	var m *AnalyticsMetrics
	m.Observe("x", time.Second)
	m.Fail("x", "y")
	m.Cache(true)
}
