package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StockTime/pkg/util"
)

// Timestamp decodes the time formats the prediction service emits:
// "2024-01-01", "2024-01-01 09:30:00", RFC3339 strings, or unix seconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, ok := util.ParseTime(s)
		if !ok {
			return fmt.Errorf("invalid timestamp %q", s)
		}
		t.Time = parsed
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	parsed, ok := util.ParseTime(strconv.FormatInt(int64(n), 10))
	if !ok {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// OHLCPoint is one historical bar as returned by the prediction service.
type OHLCPoint struct {
	Time  Timestamp `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PredictionResult pairs the history the model saw with one predicted price per future step.
type PredictionResult struct {
	HistoricalData []OHLCPoint `json:"historicalData"`
	Predictions    []float64   `json:"predictions"`
}

// LastClose returns the close of the last historical bar in input order.
func (r *PredictionResult) LastClose() (float64, bool) {
	if r == nil || len(r.HistoricalData) == 0 {
		return 0, false
	}
	return r.HistoricalData[len(r.HistoricalData)-1].Close, true
}
