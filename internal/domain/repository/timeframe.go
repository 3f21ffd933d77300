package repository

import (
	"time"

	"StockTime/internal/domain/models"
)

// Timeframe represents bar granularity as the prediction service names it.
type Timeframe string

const (
	TF5Min  Timeframe = "5min"
	TF15Min Timeframe = "15min"
	TF1H    Timeframe = "1h"
	TF1D    Timeframe = "1d"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF5Min, TF15Min, TF1H, TF1D:
		return true
	default:
		return false
	}
}

// StepSeconds is the spacing between consecutive bars; unknown timeframes are treated as daily.
func StepSeconds(tf string) int64 {
	switch Timeframe(tf) {
	case TF5Min:
		return 300
	case TF15Min:
		return 900
	case TF1H:
		return 3600
	default:
		return 86400
	}
}

// StepMinutes is StepSeconds expressed in minutes.
func StepMinutes(tf string) int64 {
	return StepSeconds(tf) / 60
}

// IsIntraday reports whether bars are shorter than a day.
func IsIntraday(tf string) bool {
	return StepSeconds(tf) < 86400
}

// PollInterval is how often tracking data is refreshed for tf.
func PollInterval(tf string) time.Duration {
	switch Timeframe(tf) {
	case TF5Min:
		return 30 * time.Second
	case TF15Min:
		return 60 * time.Second
	case TF1H:
		return 300 * time.Second
	default:
		return 900 * time.Second
	}
}

// LookbackDays is the tracking window sent to the service.
func LookbackDays(market models.MarketID, tf string) int {
	if market == models.MarketCrypto && Timeframe(tf) != TF1D {
		return 1
	}
	return 7
}
