package usecase

import (
	"fmt"
	"math"

	"CoinPulse/internal/domain/models"
)

// LoadSeries validates a raw chart and splits it into one TimeSeries per segment.
// Rows are kept in provider order; nothing is dropped or re-sorted.
func LoadSeries(chart models.MarketChart) (models.SegmentSeries, error) {
	out := make(models.SegmentSeries, len(models.Segments()))
	for _, seg := range models.Segments() {
		ts, err := loadSegment(seg, chart.Rows(seg))
		if err != nil {
			return nil, err
		}
		out[seg] = ts
	}
	return out, nil
}

func loadSegment(seg models.Segment, rows [][]float64) (models.TimeSeries, error) {
	field := seg.ChartField()
	if rows == nil {
		return models.TimeSeries{}, &models.ShapeMismatchError{Field: field, Dimension: models.DimMissing}
	}
	if len(rows) != models.SeriesLength {
		return models.TimeSeries{}, &models.ShapeMismatchError{
			Field:     field,
			Dimension: models.DimRows,
			Got:       len(rows),
			Want:      models.SeriesLength,
		}
	}

	points := make([]models.Point, len(rows))
	for i, row := range rows {
		if len(row) != models.PointColumns {
			return models.TimeSeries{}, &models.ShapeMismatchError{
				Field:     field,
				Dimension: models.DimColumns,
				Row:       i,
				Got:       len(row),
				Want:      models.PointColumns,
			}
		}
		ts, v := row[0], row[1]
		if !finite(ts) || !finite(v) {
			return models.TimeSeries{}, fmt.Errorf("%s row %d: %w", field, i, models.ErrNonFinite)
		}
		if math.Abs(ts) > maxTimestamp {
			return models.TimeSeries{}, fmt.Errorf("%s row %d: timestamp %g out of range: %w", field, i, ts, models.ErrNonFinite)
		}
		points[i] = models.Point{Timestamp: int64(ts), Value: v}
		if i > 0 && points[i].Timestamp < points[i-1].Timestamp {
			return models.TimeSeries{}, fmt.Errorf("%s row %d: %w", field, i, models.ErrUnordered)
		}
	}
	return models.TimeSeries{Segment: seg, Points: points}, nil
}

// maxTimestamp bounds timestamps to the exactly representable float64 integers.
const maxTimestamp = 1 << 53

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
