package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"StockTime/internal/domain/models"
	pkgkafka "StockTime/pkg/kafka"
	applogger "StockTime/pkg/logger"
)

type memWriter struct{ msgs []kafka.Message }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestKafkaEventPublisherKeysBySession(t *testing.T) {
	w := &memWriter{}
	pub := NewKafkaEventPublisher(pkgkafka.NewProducerFromWriter(w, "gzip", nil), "stocktime.events")

	ev := &models.DashboardEvent{ID: "e1", SessionID: "s1", Kind: models.EventPredictionCompleted, Ticker: "AAPL", Timestamp: time.Now().UTC()}
	if err := pub.PublishEvent(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "stocktime.events" || string(m.Key) != "s1" {
		t.Fatalf("unexpected message %s/%s", m.Topic, m.Key)
	}
	if len(m.Headers) != 1 || string(m.Headers[0].Value) != models.EventPredictionCompleted {
		t.Fatalf("missing kind header: %+v", m.Headers)
	}
	var back models.DashboardEvent
	if err := json.Unmarshal(m.Value, &back); err != nil || back.Ticker != "AAPL" {
		t.Fatalf("bad payload %s: %v", m.Value, err)
	}

	if err := pub.PublishMessage(context.Background(), "stocktime.logs", applogger.LogBatch{Service: "x"}); err != nil {
		t.Fatalf("publish message: %v", err)
	}
	if w.msgs[1].Topic != "stocktime.logs" || w.msgs[1].Key != nil {
		t.Fatalf("unexpected log message %+v", w.msgs[1])
	}
}

func TestLogEventPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogEventPublisher(applogger.NewWriter(&buf, "info"))
	_ = pub.PublishEvent(context.Background(), &models.DashboardEvent{SessionID: "s1", Kind: models.EventTrackingRefreshed})
	if !strings.Contains(buf.String(), models.EventTrackingRefreshed) {
		t.Fatalf("event not logged: %s", buf.String())
	}
}
