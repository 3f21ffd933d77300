package projection

import (
	"strings"
	"testing"
	"time"

	"StockTime/internal/domain/models"
)

func TestPredictionRowsDaily(t *testing.T) {
	res := &models.PredictionResult{
		HistoricalData: []models.OHLCPoint{bar(day(1), 100)},
		Predictions:    []float64{105, 110},
	}
	rows := PredictionRows(res, "1d")
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	want := []PredictionRow{
		{Step: 1, Time: "Jan 2", Timestamp: "2024-01-02", Price: "$105.00"},
		{Step: 2, Time: "Jan 3", Timestamp: "2024-01-03", Price: "$110.00"},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: got %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestPredictionRowsIntraday(t *testing.T) {
	base := time.Date(2024, 1, 1, 23, 50, 0, 0, time.UTC)
	res := &models.PredictionResult{
		HistoricalData: []models.OHLCPoint{bar(base, 42000)},
		Predictions:    []float64{42100.456, 42200},
	}
	rows := PredictionRows(res, "15min")
	if rows[0].Timestamp != "2024-01-02 00:05" || rows[1].Timestamp != "2024-01-02 00:20" {
		t.Fatalf("unexpected timestamps %+v", rows)
	}
	if rows[0].Price != "$42,100.46" {
		t.Fatalf("unexpected price %q", rows[0].Price)
	}
	if PredictionRows(&models.PredictionResult{Predictions: []float64{1}}, "1d") != nil {
		t.Fatalf("rows need a historical anchor")
	}
}

func f(v float64) *float64 { return &v }

func TestTrackingRowsPendingAndSign(t *testing.T) {
	ts := models.Timestamp{Time: day(1)}
	res := &models.TrackingResult{
		Predictions: []models.TrackedPrediction{
			{ID: "a", PredictionTime: ts, TargetTime: ts, PredictedPrice: 100, ActualPrice: f(101), ErrorPercentage: f(1.234)},
			{ID: "b", PredictionTime: ts, TargetTime: ts, PredictedPrice: 100, ActualPrice: f(99), ErrorPercentage: f(-0.5)},
			{ID: "c", PredictionTime: ts, TargetTime: ts, PredictedPrice: 100},
			{ID: "d", PredictionTime: ts, TargetTime: ts, PredictedPrice: 100, ActualPrice: f(100), ErrorPercentage: f(0)},
		},
	}
	rows := TrackingRows(res, "1d")
	if rows[0].Error != "+1.23%" || rows[0].Sign != SignPositive || rows[0].Actual != "$101.00" {
		t.Fatalf("row a: %+v", rows[0])
	}
	if rows[1].Error != "-0.50%" || rows[1].Sign != SignNegative {
		t.Fatalf("row b: %+v", rows[1])
	}
	if rows[2].Actual != "Pending" || rows[2].Error != "Pending" || rows[2].Sign != SignNeutral {
		t.Fatalf("row c: %+v", rows[2])
	}
	if rows[3].Error != "0.00%" || rows[3].Sign != SignNeutral {
		t.Fatalf("row d: %+v", rows[3])
	}
	if rows[0].PredictionTime != "Jan 1" {
		t.Fatalf("unexpected time %q", rows[0].PredictionTime)
	}
}

func TestStatisticsSummary(t *testing.T) {
	s := StatisticsSummary(models.TrackingStatistics{AverageError: 1.234, AccuracyWithin1Percent: 55.55, AccuracyWithin5Percent: 100})
	if s.AverageError != "1.23%" || s.Within1 != "55.6%" || s.Within5 != "100.0%" {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRenderTables(t *testing.T) {
	out := RenderPredictionTable([]PredictionRow{{Step: 1, Time: "Jan 2", Timestamp: "2024-01-02", Price: "$105.00"}})
	if !strings.Contains(out, "$105.00") || !strings.Contains(out, "2024-01-02") {
		t.Fatalf("prediction table missing cells:\n%s", out)
	}
	out = RenderTrackingTable(StatisticsRow{AverageError: "1.00%"}, []TrackingRow{{Predicted: "$1.00", Actual: "Pending", Error: "Pending"}})
	if strings.Count(out, "Pending") != 2 {
		t.Fatalf("tracking table should show Pending twice:\n%s", out)
	}
	if !strings.Contains(RenderPredictionTable(nil), "no predictions") {
		t.Fatalf("empty table placeholder missing")
	}
}
