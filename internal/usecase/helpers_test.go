package usecase

import (
	"time"

	"CoinPulse/internal/domain/models"
)

var day0 = time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)

func rows(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{float64(day0.AddDate(0, 0, i).UnixMilli()), v}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func spiked(n int, base float64, spikes map[int]float64) []float64 {
	out := constant(n, base)
	for pos, v := range spikes {
		out[pos] = v
	}
	return out
}

// chartOf builds a valid chart using the same values for every segment.
func chartOf(values []float64) models.MarketChart {
	return models.MarketChart{
		Prices:       rows(values),
		TotalVolumes: rows(values),
		MarketCaps:   rows(values),
	}
}
