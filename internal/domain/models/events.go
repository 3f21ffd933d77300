package models

import "time"

// Event kinds emitted by a dashboard session.
const (
	EventPredictionRequested = "prediction.requested"
	EventPredictionCompleted = "prediction.completed"
	EventPredictionFailed    = "prediction.failed"
	EventTrackingRefreshed   = "tracking.refreshed"
	EventTrackingFailed      = "tracking.failed"
)

// DashboardEvent is an audit record of a view-model transition.
type DashboardEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Ticker    string    `json:"ticker"`
	Market    MarketID  `json:"market_type"`
	Timeframe string    `json:"timeframe"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
