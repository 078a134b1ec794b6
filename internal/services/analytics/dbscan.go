package analytics

import (
	"context"
	"fmt"
	"math"

	"CoinPulse/internal/domain/models"
	domsvc "CoinPulse/internal/domain/service"
)

const (
	DefaultEps    = 0.1
	DefaultMinPts = 3
)

// DensityDetector is a one-feature DBSCAN. Points that are not density-reachable
// from any core point are labelled models.NoiseLabel.
type DensityDetector struct {
	eps    float64
	minPts int
}

// DensityOption configures DensityDetector.
type DensityOption func(*DensityDetector)

// WithEps sets the neighbourhood radius in standardized units.
func WithEps(eps float64) DensityOption {
	return func(d *DensityDetector) {
		if eps > 0 {
			d.eps = eps
		}
	}
}

// WithMinPts sets the neighbourhood size (self included) for a core point.
func WithMinPts(n int) DensityOption {
	return func(d *DensityDetector) {
		if n > 0 {
			d.minPts = n
		}
	}
}

// NewDensityDetector creates a DBSCAN detector with eps=0.1 and minPts=3 unless overridden.
func NewDensityDetector(opts ...DensityOption) *DensityDetector {
	d := &DensityDetector{eps: DefaultEps, minPts: DefaultMinPts}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DensityDetector) Name() string { return models.DetectorDensity }

func (d *DensityDetector) IsAnomalous(label int) bool { return label == models.NoiseLabel }

// Detect clusters the series. Clusters are numbered in the order their first
// core point appears, so output depends only on (values, eps, minPts).
func (d *DensityDetector) Detect(ctx context.Context, series models.StandardizedSeries) (models.LabelSet, error) {
	xs := series.Values
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return models.LabelSet{}, fmt.Errorf("dbscan: position %d: %w", i, models.ErrNonFinite)
		}
	}
	if err := ctx.Err(); err != nil {
		return models.LabelSet{}, err
	}

	const unvisited = -2
	labels := make([]int, len(xs))
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := range xs {
		if labels[i] != unvisited {
			continue
		}
		nbrs := d.neighbours(xs, i)
		if len(nbrs) < d.minPts {
			labels[i] = models.NoiseLabel
			continue
		}
		labels[i] = cluster
		queue := append([]int(nil), nbrs...)
		for k := 0; k < len(queue); k++ {
			j := queue[k]
			if labels[j] == models.NoiseLabel {
				// border point reached from a core point
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if jn := d.neighbours(xs, j); len(jn) >= d.minPts {
				queue = append(queue, jn...)
			}
		}
		cluster++
	}

	return models.LabelSet{Detector: d.Name(), Labels: labels}, nil
}

func (d *DensityDetector) neighbours(xs []float64, i int) []int {
	out := make([]int, 0, 8)
	for j, x := range xs {
		if math.Abs(x-xs[i]) <= d.eps {
			out = append(out, j)
		}
	}
	return out
}

var _ domsvc.AnomalyDetector = (*DensityDetector)(nil)
