package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	"StockTime/internal/domain/models"
	domrepo "StockTime/internal/domain/repository"
	pkgkafka "StockTime/pkg/kafka"
	applogger "StockTime/pkg/logger"
)

// KafkaEventPublisher writes dashboard events to one topic, keyed by session so a
// session's events stay ordered within a partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(p *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, topic: topic}
}

func (e *KafkaEventPublisher) PublishEvent(ctx context.Context, ev *models.DashboardEvent) error {
	return e.producer.Publish(ctx, e.topic, []byte(ev.SessionID), ev,
		kafka.Header{Key: "kind", Value: []byte(ev.Kind)},
	)
}

// PublishMessage lets the log collector ship batches through the same producer.
func (e *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return e.producer.Publish(ctx, topic, nil, payload)
}

func (e *KafkaEventPublisher) Close() error {
	return e.producer.Close()
}

// LogEventPublisher writes events to the application log. Used when Kafka is disabled.
type LogEventPublisher struct {
	l *applogger.Logger
}

func NewLogEventPublisher(l *applogger.Logger) *LogEventPublisher {
	return &LogEventPublisher{l: l}
}

func (p *LogEventPublisher) PublishEvent(_ context.Context, ev *models.DashboardEvent) error {
	p.l.Info("dashboard event",
		applogger.String("kind", ev.Kind),
		applogger.SessionID(ev.SessionID),
		applogger.Ticker(ev.Ticker),
		applogger.String("timeframe", ev.Timeframe),
		applogger.String("message", ev.Message),
	)
	return nil
}

func (p *LogEventPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = (*LogEventPublisher)(nil)
	_ applogger.Publisher    = (*KafkaEventPublisher)(nil)
)
