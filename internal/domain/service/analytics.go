package service

import (
	"context"

	"CoinPulse/internal/domain/models"
)

// AnomalyDetector labels the positions of a standardized series.
// Implementations must be deterministic for identical input and parameters.
type AnomalyDetector interface {
	Name() string
	Detect(ctx context.Context, series models.StandardizedSeries) (models.LabelSet, error)
	IsAnomalous(label int) bool
}

// EventQuerier searches the news corpus for one query window.
type EventQuerier interface {
	Query(ctx context.Context, q models.EventQuery) (models.EventResult, error)
}
