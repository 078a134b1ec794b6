package analytics

import (
	"fmt"

	"CoinPulse/internal/domain/models"
	"CoinPulse/pkg/util"
)

// ResolveDates maps anomalous positions of labels back to calendar dates of ts.
// Dates are UTC, truncated to the day, deduplicated, and ordered by position.
func ResolveDates(labels models.LabelSet, ts models.TimeSeries, isAnomalous func(int) bool) ([]models.AnomalyDate, []int, error) {
	if len(labels.Labels) != ts.Len() {
		return nil, nil, fmt.Errorf("%s on %s: %d labels for %d points: %w",
			labels.Detector, ts.Segment, len(labels.Labels), ts.Len(), models.ErrLengthMismatch)
	}

	positions := make([]int, 0)
	dates := make([]models.AnomalyDate, 0)
	seen := make(map[models.AnomalyDate]struct{})
	for i, l := range labels.Labels {
		if !isAnomalous(l) {
			continue
		}
		positions = append(positions, i)
		d := DateOf(ts.Points[i].Timestamp)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	return dates, positions, nil
}

// DateOf converts a unix-millisecond timestamp to its UTC calendar date.
func DateOf(ms int64) models.AnomalyDate {
	return models.AnomalyDate(util.DateFromMillis(ms))
}
