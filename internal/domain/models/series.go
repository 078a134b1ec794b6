package models

import (
	"time"

	"CoinPulse/pkg/util"
)

const (
	// SeriesLength is the row count of a 90-day daily chart: row 0 is the baseline day.
	SeriesLength = 91
	// PointColumns is the width of one raw chart row: [timestamp_ms, value].
	PointColumns = 2
	// DateLayout is the calendar-date format used for anomaly dates.
	DateLayout = util.DateLayout
)

// Segment names one of the independent scalar series of a chart.
type Segment string

const (
	SegmentPrice     Segment = "price"
	SegmentVolume    Segment = "volume"
	SegmentMarketCap Segment = "market_cap"
)

// Segments lists the segments in pipeline order.
func Segments() []Segment {
	return []Segment{SegmentPrice, SegmentVolume, SegmentMarketCap}
}

// ChartField returns the provider key the segment is read from.
func (s Segment) ChartField() string {
	switch s {
	case SegmentPrice:
		return "prices"
	case SegmentVolume:
		return "total_volumes"
	case SegmentMarketCap:
		return "market_caps"
	default:
		return string(s)
	}
}

// MarketChart is the raw provider record before validation.
type MarketChart struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
	MarketCaps   [][]float64 `json:"market_caps"`
}

// Rows returns the raw rows backing a segment.
func (c MarketChart) Rows(s Segment) [][]float64 {
	switch s {
	case SegmentPrice:
		return c.Prices
	case SegmentVolume:
		return c.TotalVolumes
	case SegmentMarketCap:
		return c.MarketCaps
	default:
		return nil
	}
}

// Point is a single daily observation.
type Point struct {
	Timestamp int64   `json:"timestamp"` // unix ms
	Value     float64 `json:"value"`
}

// Time returns the point timestamp in UTC.
func (p Point) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// TimeSeries is one validated segment. Points are never re-ordered or dropped.
type TimeSeries struct {
	Segment Segment `json:"segment"`
	Points  []Point `json:"points"`
}

// Len returns the number of points.
func (t TimeSeries) Len() int { return len(t.Points) }

// Values copies the scalar component of every point, preserving position.
func (t TimeSeries) Values() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Value
	}
	return out
}

// SegmentSeries holds the three aligned series of one chart.
type SegmentSeries map[Segment]TimeSeries

// StandardizedSeries is the zero-mean/unit-variance view of a TimeSeries.
// Values[i] corresponds to TimeSeries.Points[i].
type StandardizedSeries struct {
	Segment    Segment   `json:"segment"`
	Values     []float64 `json:"values"`
	Mean       float64   `json:"mean"`
	Scale      float64   `json:"scale"`
	Degenerate bool      `json:"degenerate"`
}

// SeriesStats are the raw descriptive metrics of a segment.
type SeriesStats struct {
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
	StdDev   float64 `json:"stddev"`
	Variance float64 `json:"variance"`
	Mean     float64 `json:"mean"`
}
