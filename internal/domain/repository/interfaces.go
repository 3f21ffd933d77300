package repository

import (
	"context"
	"time"

	"StockTime/internal/domain/models"
)

// PredictionQuery is the body of a predict call.
type PredictionQuery struct {
	Ticker     string          `json:"ticker"`
	MarketType models.MarketID `json:"marketType"`
	Timeframe  string          `json:"timeframe"`
}

// TrackingQuery is the parameter set of a track_predictions call.
type TrackingQuery struct {
	Ticker     string
	MarketType models.MarketID
	Timeframe  string
	Days       int
}

// PredictionGateway is the remote prediction service as seen by the view models.
type PredictionGateway interface {
	FetchPrediction(ctx context.Context, q PredictionQuery) (*models.PredictionResult, error)
	FetchTracking(ctx context.Context, q TrackingQuery) (*models.TrackingResult, error)
}

// EventPublisher ships dashboard events to an external sink.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *models.DashboardEvent) error
	Close() error
}

type Metrics interface {
	RecordGatewayCall(op string, err error, d time.Duration)
	RecordStaleDiscard(vm string)
	RecordPollSkipped()
	RecordPollTick(timeframe string)
	RecordEvent(kind string, err error)
	RecordActiveSessions(n int)
	RecordError(kind string)
}
