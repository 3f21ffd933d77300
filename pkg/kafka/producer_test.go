package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
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

func TestProducerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &memWriter{}
	p := NewProducerFromWriter(w, "gzip", reg)

	_ = p.Publish(context.Background(), "t", nil, "x")
	w.err = errors.New("down")
	_ = p.PublishBatch(context.Background(), "t", []Message{{Value: "a"}, {Value: map[string]int{"b": 1}}})

	if got := testutil.ToFloat64(p.metrics.msgs.WithLabelValues("t", "gzip", "ok")); got != 1 {
		t.Fatalf("ok messages: %v", got)
	}
	if got := testutil.ToFloat64(p.metrics.msgs.WithLabelValues("t", "gzip", "error")); got != 2 {
		t.Fatalf("error messages: %v", got)
	}
	if got := testutil.ToFloat64(p.metrics.errs.WithLabelValues("t")); got != 1 {
		t.Fatalf("errors: %v", got)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestProducerConfigWriter(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithBrokers([]string{"b1:9092"}),
		WithHashByKey(true),
		WithCompression("snappy"),
		WithMaxAttempts(0),
	} {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	w := cfg.writer()
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("balancer = %T, want *kafka.Hash", w.Balancer)
	}
	if w.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want default 3", w.MaxAttempts)
	}

	cfg.RequiredAcks = 2
	if err := cfg.validate(); err == nil {
		t.Fatal("expected acks error")
	}
}
