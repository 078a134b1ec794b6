package analytics

import (
	"math"

	"CoinPulse/internal/domain/models"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeStats returns the raw descriptive metrics of a series.
func ComputeStats(ts models.TimeSeries) models.SeriesStats {
	values := ts.Values()
	if len(values) == 0 {
		return models.SeriesStats{}
	}
	mean, variance := stat.MeanVariance(values, nil)
	if math.IsNaN(variance) {
		variance = 0
	}
	return models.SeriesStats{
		Max:      floats.Max(values),
		Min:      floats.Min(values),
		StdDev:   math.Sqrt(variance),
		Variance: variance,
		Mean:     mean,
	}
}

// FormatUSD renders an amount as a dollar string with two decimals and thousands separators.
func FormatUSD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	s := d.StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b = append(b, ',')
		}
		b = append(b, intPart[i])
	}
	return sign + "$" + string(b) + frac
}
