package analytics

import (
	"math"

	"CoinPulse/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes one series. A Scaler is fitted once and owned by a
// single detector invocation; it is never shared between segments.
type Scaler struct {
	mean       float64
	scale      float64
	degenerate bool
	fitted     bool
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler { return &Scaler{} }

// IdentityScaler returns a scaler fixed at mean 0 and scale 1.
func IdentityScaler() *Scaler { return &Scaler{scale: 1, fitted: true} }

// Fit computes the mean and sample standard deviation of values.
func (s *Scaler) Fit(values []float64) *Scaler {
	mean, std := stat.MeanStdDev(values, nil)
	s.mean = mean
	s.scale = std
	s.degenerate = false
	if len(values) < 2 || std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		// constant series: keep Inverse defined and emit zeros
		s.scale = 1
		s.degenerate = true
	}
	s.fitted = true
	return s
}

// Transform maps values to (v - mean) / scale, position for position.
func (s *Scaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	if s.degenerate {
		return out
	}
	for i, v := range values {
		out[i] = (v - s.mean) / s.scale
	}
	return out
}

// FitTransform fits on the series values and returns the standardized view.
func (s *Scaler) FitTransform(ts models.TimeSeries) models.StandardizedSeries {
	values := ts.Values()
	s.Fit(values)
	return models.StandardizedSeries{
		Segment:    ts.Segment,
		Values:     s.Transform(values),
		Mean:       s.mean,
		Scale:      s.scale,
		Degenerate: s.degenerate,
	}
}

// Inverse maps a standardized value back to the raw scale.
func (s *Scaler) Inverse(z float64) float64 {
	return z*s.scale + s.mean
}

// Mean returns the fitted mean.
func (s *Scaler) Mean() float64 { return s.mean }

// Scale returns the fitted scale.
func (s *Scaler) Scale() float64 { return s.scale }

// Degenerate reports whether the fitted series had zero variance.
func (s *Scaler) Degenerate() bool { return s.degenerate }
