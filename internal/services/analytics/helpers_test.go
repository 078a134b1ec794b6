package analytics

import (
	"time"

	"CoinPulse/internal/domain/models"
)

var day0 = time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)

func dailySeries(seg models.Segment, values []float64) models.TimeSeries {
	pts := make([]models.Point, len(values))
	for i, v := range values {
		pts[i] = models.Point{Timestamp: day0.AddDate(0, 0, i).UnixMilli(), Value: v}
	}
	return models.TimeSeries{Segment: seg, Points: pts}
}

func constantValues(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func withOutlier(n, pos int, base, outlier float64) []float64 {
	out := constantValues(n, base)
	out[pos] = outlier
	return out
}

// wavyValues returns a smooth, bounded series with no isolated points.
func wavyValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%10)
	}
	return out
}
