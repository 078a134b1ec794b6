package repository

import (
	"context"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// MessagePublisher is the producer surface used by the Kafka adapters.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher publishes finished reports keyed by coin.
type KafkaReportPublisher struct {
	producer MessagePublisher
	topic    string
}

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)

// NewKafkaReportPublisher creates a report publisher.
func NewKafkaReportPublisher(producer MessagePublisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.RunReport) error {
	if r == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.topic, []byte(r.Coin), r)
}

// Close closes the underlying producer.
func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaSnapshotSink pushes segment snapshots keyed by coin and segment.
type KafkaSnapshotSink struct {
	producer MessagePublisher
	topic    string
}

var _ domrepo.SnapshotSink = (*KafkaSnapshotSink)(nil)

// NewKafkaSnapshotSink creates a snapshot sink. The producer is shared, so Close is left to its owner.
func NewKafkaSnapshotSink(producer MessagePublisher, topic string) *KafkaSnapshotSink {
	return &KafkaSnapshotSink{producer: producer, topic: topic}
}

func (s *KafkaSnapshotSink) PushSnapshot(ctx context.Context, snap models.SegmentSnapshot) error {
	key := []byte(snap.Coin + ":" + string(snap.Segment))
	return s.producer.Publish(ctx, s.topic, key, snap)
}
