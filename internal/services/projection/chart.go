package projection

import (
	"sort"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/pkg/logger"
	"StockTime/pkg/util"
)

// Candle is one candlestick bar; Time is unix seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// LinePoint is one point of the prediction line; Time is unix seconds.
type LinePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// ChartSeries is what a chart renders for one prediction result.
type ChartSeries struct {
	Timeframe   string      `json:"timeframe"`
	Candles     []Candle    `json:"candles"`
	Predictions []LinePoint `json:"predictions"`
}

// Projector turns prediction results into chart series.
type Projector struct {
	log *logger.Logger
}

func NewProjector(log *logger.Logger) *Projector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Projector{log: log}
}

// ProjectChart returns false when there is no history to anchor the prediction line.
func (p *Projector) ProjectChart(res *models.PredictionResult, tf string) (ChartSeries, bool) {
	if res == nil || len(res.HistoricalData) == 0 {
		p.log.Debug("no historical data to chart", logger.String("timeframe", tf))
		return ChartSeries{}, false
	}
	return ProjectChart(res, tf)
}

// ProjectChart builds the candlestick and prediction series. Historical points are
// deduplicated by date key (first seen wins) and sorted ascending; prediction i is
// placed i steps after the latest historical bar.
func ProjectChart(res *models.PredictionResult, tf string) (ChartSeries, bool) {
	if res == nil || len(res.HistoricalData) == 0 {
		return ChartSeries{}, false
	}

	daily := !drepo.IsIntraday(tf)
	seen := make(map[int64]struct{}, len(res.HistoricalData))
	candles := make([]Candle, 0, len(res.HistoricalData))
	for _, pt := range res.HistoricalData {
		key := barTime(pt.Time.Time, daily)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candles = append(candles, Candle{Time: key, Open: pt.Open, High: pt.High, Low: pt.Low, Close: pt.Close})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })

	return ChartSeries{
		Timeframe:   tf,
		Candles:     candles,
		Predictions: futurePoints(candles[len(candles)-1].Time, res.Predictions, drepo.StepSeconds(tf)),
	}, true
}

func futurePoints(anchor int64, prices []float64, step int64) []LinePoint {
	out := make([]LinePoint, len(prices))
	for i, v := range prices {
		out[i] = LinePoint{Time: anchor + int64(i+1)*step, Value: v}
	}
	return out
}

// barTime is the date key of a bar: the calendar day for daily data, the exact second otherwise.
func barTime(t time.Time, daily bool) int64 {
	if daily {
		return util.StartOfDay(t).Unix()
	}
	return t.Unix()
}
