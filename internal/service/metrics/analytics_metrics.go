package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AnalyticsMetrics tracks the anomaly API endpoints.
type AnalyticsMetrics struct {
	latency   *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
}

// NewAnalyticsMetrics registers the endpoint collectors on reg.
func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	f := promauto.With(reg)
	return &AnalyticsMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coinpulse",
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics endpoints",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coinpulse",
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Errors by analytics endpoint",
			},
			[]string{"endpoint", "kind"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coinpulse",
				Subsystem: "analytics",
				Name:      "report_cache_total",
				Help:      "Report cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// Observe records the latency of one request. Safe on a nil receiver.
func (m *AnalyticsMetrics) Observe(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Fail counts a failed request.
func (m *AnalyticsMetrics) Fail(endpoint, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(endpoint, kind).Inc()
}

// Cache counts a report cache hit or miss.
func (m *AnalyticsMetrics) Cache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}
