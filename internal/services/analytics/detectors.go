package analytics

import (
	domsvc "CoinPulse/internal/domain/service"
)

// DetectorParams selects and tunes the detector variants.
type DetectorParams struct {
	Eps           float64
	MinPts        int
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

// NewDetectors builds the density and isolation detectors, in that order.
func NewDetectors(p DetectorParams) []domsvc.AnomalyDetector {
	return []domsvc.AnomalyDetector{
		NewDensityDetector(WithEps(p.Eps), WithMinPts(p.MinPts)),
		NewIsolationDetector(
			WithTrees(p.Trees),
			WithMaxSamples(p.MaxSamples),
			WithContamination(p.Contamination),
			WithSeed(p.Seed),
		),
	}
}
