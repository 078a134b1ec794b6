package repository

import (
	"context"

	"CoinPulse/internal/domain/models"
)

// MarketDataSource returns the raw 90-day daily chart for a coin.
type MarketDataSource interface {
	MarketChart(ctx context.Context, coin string) (models.MarketChart, error)
}

// ReportStore persists finished run reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *models.RunReport) error
	Close() error
}

// ReportPublisher fans run reports out to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.RunReport) error
	Close() error
}

// SnapshotSink receives per-segment visualization payloads. Delivery is best-effort.
type SnapshotSink interface {
	PushSnapshot(ctx context.Context, s models.SegmentSnapshot) error
}

type Metrics interface {
	RecordRun(coin string, state models.RunState)
	RecordAnomalies(segment models.Segment, detector string, n int)
	RecordQuery(segment models.Segment, status models.QueryStatus)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
