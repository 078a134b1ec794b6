package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &memWriter{}
	p := NewProducerWithWriter(w, "gzip")

	payload := map[string]int{"anomalies": 2}
	if err := p.Publish(context.Background(), "reports", []byte("bitcoin"), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 || w.msgs[0].Topic != "reports" || string(w.msgs[0].Key) != "bitcoin" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var got map[string]int
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil || got["anomalies"] != 2 {
		t.Fatalf("value %s err=%v", w.msgs[0].Value, err)
	}
}

func TestPublishError(t *testing.T) {
	p := NewProducerWithWriter(&memWriter{err: errors.New("leader not available")}, "gzip")
	if err := p.PublishMessage(context.Background(), "logs", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
