package analytics

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"CoinPulse/internal/domain/models"
	domsvc "CoinPulse/internal/domain/service"
)

const (
	DefaultTrees      = 100
	DefaultMaxSamples = 256
	DefaultSeed       = 42
	// autoThreshold is the score above which a point is anomalous when contamination is "auto".
	autoThreshold = 0.5
	eulerGamma    = 0.5772156649015329
)

// IsolationDetector is an Isolation Forest over one feature.
type IsolationDetector struct {
	trees         int
	maxSamples    int
	contamination float64 // 0 means auto
	seed          int64
}

// IsolationOption configures IsolationDetector.
type IsolationOption func(*IsolationDetector)

// WithTrees sets the ensemble size.
func WithTrees(n int) IsolationOption {
	return func(d *IsolationDetector) {
		if n > 0 {
			d.trees = n
		}
	}
}

// WithMaxSamples sets the per-tree sub-sample size.
func WithMaxSamples(n int) IsolationOption {
	return func(d *IsolationDetector) {
		if n > 0 {
			d.maxSamples = n
		}
	}
}

// WithContamination sets the expected outlier fraction; 0 selects the automatic threshold.
func WithContamination(c float64) IsolationOption {
	return func(d *IsolationDetector) {
		if c >= 0 && c <= 0.5 {
			d.contamination = c
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed int64) IsolationOption {
	return func(d *IsolationDetector) {
		d.seed = seed
	}
}

// NewIsolationDetector creates an Isolation Forest with 100 trees and seed 42.
func NewIsolationDetector(opts ...IsolationOption) *IsolationDetector {
	d := &IsolationDetector{
		trees:      DefaultTrees,
		maxSamples: DefaultMaxSamples,
		seed:       DefaultSeed,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *IsolationDetector) Name() string { return models.DetectorIsolation }

func (d *IsolationDetector) IsAnomalous(label int) bool { return label == models.OutlierLabel }

// Detect labels each position +1 (normal) or -1 (anomalous).
func (d *IsolationDetector) Detect(ctx context.Context, series models.StandardizedSeries) (models.LabelSet, error) {
	scores, err := d.Scores(ctx, series.Values)
	if err != nil {
		return models.LabelSet{}, err
	}
	threshold := d.threshold(scores)

	labels := make([]int, len(scores))
	for i, s := range scores {
		labels[i] = models.InlierLabel
		if s > threshold {
			labels[i] = models.OutlierLabel
		}
	}
	return models.LabelSet{Detector: d.Name(), Labels: labels}, nil
}

// Scores returns s(x) = 2^(-E[h(x)]/c(psi)) for every value; higher is more anomalous.
// A fresh random source seeded with d.seed is used per call.
func (d *IsolationDetector) Scores(ctx context.Context, xs []float64) ([]float64, error) {
	n := len(xs)
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("isolation forest: position %d: %w", i, models.ErrNonFinite)
		}
	}
	scores := make([]float64, n)
	if n < 2 {
		return scores, nil
	}

	psi := d.maxSamples
	if psi > n {
		psi = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	rng := rand.New(rand.NewSource(d.seed))

	depths := make([]float64, n)
	for t := 0; t < d.trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample := rng.Perm(n)[:psi]
		vals := make([]float64, psi)
		for i, idx := range sample {
			vals[i] = xs[idx]
		}
		root := growTree(rng, vals, 0, heightLimit)
		for i, x := range xs {
			depths[i] += root.pathLength(x, 0)
		}
	}

	norm := averagePathLength(psi)
	for i := range xs {
		mean := depths[i] / float64(d.trees)
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores, nil
}

func (d *IsolationDetector) threshold(scores []float64) float64 {
	if d.contamination <= 0 || len(scores) == 0 {
		return autoThreshold
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	// points strictly above the (1-contamination) quantile are flagged
	k := int(math.Ceil(float64(len(sorted))*(1-d.contamination))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(sorted) {
		k = len(sorted) - 1
	}
	return sorted[k]
}

type isoNode struct {
	split       float64
	left, right *isoNode
	size        int
	leaf        bool
}

func growTree(rng *rand.Rand, vals []float64, depth, limit int) *isoNode {
	if depth >= limit || len(vals) <= 1 {
		return &isoNode{leaf: true, size: len(vals)}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &isoNode{leaf: true, size: len(vals)}
	}
	split := lo + rng.Float64()*(hi-lo)

	left := make([]float64, 0, len(vals))
	right := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{leaf: true, size: len(vals)}
	}
	return &isoNode{
		split: split,
		left:  growTree(rng, left, depth+1, limit),
		right: growTree(rng, right, depth+1, limit),
	}
}

func (n *isoNode) pathLength(x float64, depth int) float64 {
	if n.leaf {
		return float64(depth) + averagePathLength(n.size)
	}
	if x < n.split {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

// averagePathLength is c(n), the mean unsuccessful-search path length of a BST with n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

var _ domsvc.AnomalyDetector = (*IsolationDetector)(nil)
