package analytics

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
)

func isNoise(l int) bool { return l == models.NoiseLabel }

func TestResolveDates(t *testing.T) {
	ts := dailySeries(models.SegmentPrice, constantValues(5, 1))
	labels := models.LabelSet{Detector: models.DetectorDensity, Labels: []int{0, -1, 0, -1, 0}}

	dates, positions, err := ResolveDates(labels, ts, isNoise)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(positions, []int{1, 3}) {
		t.Fatalf("positions %v", positions)
	}
	want := []models.AnomalyDate{"2022-12-02", "2022-12-04"}
	if !reflect.DeepEqual(dates, want) {
		t.Fatalf("dates %v, want %v", dates, want)
	}
}

func TestResolveDatesNoAnomalies(t *testing.T) {
	ts := dailySeries(models.SegmentVolume, constantValues(3, 1))
	dates, positions, err := ResolveDates(models.LabelSet{Labels: []int{1, 1, 1}}, ts, func(l int) bool { return l == models.OutlierLabel })
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(dates) != 0 || len(positions) != 0 {
		t.Fatalf("expected nothing, got %v %v", dates, positions)
	}
}

func TestResolveDatesDedupesSameDay(t *testing.T) {
	base := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	ts := models.TimeSeries{Segment: models.SegmentPrice, Points: []models.Point{
		{Timestamp: base.UnixMilli(), Value: 1},
		{Timestamp: base.Add(23*time.Hour + 59*time.Minute).UnixMilli(), Value: 2},
		{Timestamp: base.AddDate(0, 0, 1).UnixMilli(), Value: 3},
	}}
	dates, positions, err := ResolveDates(models.LabelSet{Labels: []int{-1, -1, 0}}, ts, isNoise)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(positions, []int{0, 1}) {
		t.Fatalf("positions %v", positions)
	}
	if !reflect.DeepEqual(dates, []models.AnomalyDate{"2023-01-03"}) {
		t.Fatalf("dates %v", dates)
	}
}

func TestResolveDatesLengthMismatch(t *testing.T) {
	ts := dailySeries(models.SegmentPrice, constantValues(4, 1))
	_, _, err := ResolveDates(models.LabelSet{Labels: []int{0, 0, 0}}, ts, isNoise)
	if !errors.Is(err, models.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestDateOfTruncatesToUTCDay(t *testing.T) {
	ts := time.Date(2023, 3, 14, 23, 59, 59, 0, time.UTC).UnixMilli()
	if got := DateOf(ts); got != "2023-03-14" {
		t.Fatalf("DateOf = %s", got)
	}
}
