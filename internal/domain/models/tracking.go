package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PredictionID is a tracked prediction id. The service may send it as a JSON
// string or a number; both decode to the same textual form.
type PredictionID string

func (id *PredictionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = PredictionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid prediction id %s", b)
	}
	*id = PredictionID(n.String())
	return nil
}

// TrackedPrediction is a past prediction; Actual and Error stay nil until the target time has been resolved.
type TrackedPrediction struct {
	ID              PredictionID `json:"id"`
	PredictionTime  Timestamp    `json:"prediction_time"`
	TargetTime      Timestamp    `json:"target_time"`
	PredictedPrice  float64      `json:"predicted_price"`
	ActualPrice     *float64     `json:"actual_price"`
	ErrorPercentage *float64     `json:"error_percentage"`
}

// Resolved reports whether the actual price is known.
func (p TrackedPrediction) Resolved() bool {
	return p.ActualPrice != nil
}

// TrackingStatistics aggregates accuracy over the lookback window (percent values).
type TrackingStatistics struct {
	AverageError           float64 `json:"average_error"`
	AccuracyWithin1Percent float64 `json:"accuracy_within_1_percent"`
	AccuracyWithin5Percent float64 `json:"accuracy_within_5_percent"`
}

// TrackingResult is one full snapshot from the tracking endpoint.
type TrackingResult struct {
	Predictions []TrackedPrediction `json:"predictions"`
	Statistics  TrackingStatistics  `json:"statistics"`
}
