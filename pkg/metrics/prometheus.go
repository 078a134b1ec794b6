package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs      *prometheus.CounterVec
	anomalies *prometheus.CounterVec
	queries   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_runs_total",
				Help: "Pipeline runs by coin and terminal state",
			},
			[]string{"coin", "state"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_anomalies_total",
				Help: "Flagged positions by segment and detector",
			},
			[]string{"segment", "detector"},
		),
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_event_queries_total",
				Help: "Event queries by segment and outcome",
			},
			[]string{"segment", "status"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRun(coin string, state models.RunState) {
	r.runs.WithLabelValues(coin, string(state)).Inc()
}

func (r *Recorder) RecordAnomalies(segment models.Segment, detector string, n int) {
	r.anomalies.WithLabelValues(string(segment), detector).Add(float64(n))
}

func (r *Recorder) RecordQuery(segment models.Segment, status models.QueryStatus) {
	r.queries.WithLabelValues(string(segment), string(status)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordRun(string, models.RunState) {}
func (Nop) RecordAnomalies(models.Segment, string, int) {}
func (Nop) RecordQuery(models.Segment, models.QueryStatus) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}

var (
	_ drepo.Metrics = (*Recorder)(nil)
	_ drepo.Metrics = Nop{}
)
