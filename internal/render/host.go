package render

import (
	"context"
	"fmt"
	"sync"

	"StockTime/internal/domain/models"
	"StockTime/internal/services/projection"
	"StockTime/pkg/util"
)

// RenderRequest is what a view model asks to be drawn.
type RenderRequest struct {
	Container string
	Ticker    string
	Market    models.MarketID
	Series    projection.ChartSeries
}

// ChartHost owns at most one chart. Render replaces it, Release removes it.
type ChartHost struct {
	lib     *Library
	opts    ChartOptions
	mu      sync.Mutex
	chart   Chart
	release func()
}

func NewChartHost(lib *Library, opts ChartOptions) *ChartHost {
	return &ChartHost{lib: lib, opts: opts}
}

// Render removes the previous chart, then builds and fills a new one.
func (h *ChartHost) Render(ctx context.Context, req RenderRequest) error {
	factory, err := h.lib.Get(ctx)
	if err != nil {
		return fmt.Errorf("load chart library: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked()

	chart, err := factory.CreateChart(ctx, req.Container, h.opts)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	h.chart = chart
	h.release = h.lib.Acquire()

	candleOpts := candleSeriesOptions
	if req.Ticker != "" {
		candleOpts.Title = util.ChartSymbol(req.Ticker, string(req.Market))
	}
	candles := chart.AddCandlestickSeries(candleOpts)
	line := chart.AddLineSeries(predictionOptions)
	if len(req.Series.Candles) > 0 {
		candles.SetData(candlePoints(req.Series.Candles))
	}
	if len(req.Series.Predictions) > 0 {
		line.SetData(linePoints(req.Series.Predictions))
	}
	chart.FitContent()
	return nil
}

// Active reports whether a chart is currently shown.
func (h *ChartHost) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chart != nil
}

// Release removes the current chart, if any.
func (h *ChartHost) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked()
}

func (h *ChartHost) releaseLocked() {
	if h.chart == nil {
		return
	}
	h.chart.Remove()
	h.chart = nil
	if h.release != nil {
		h.release()
		h.release = nil
	}
}

func candlePoints(in []projection.Candle) []Point {
	out := make([]Point, len(in))
	for i, c := range in {
		out[i] = Point{Time: c.Time, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return out
}

func linePoints(in []projection.LinePoint) []Point {
	out := make([]Point, len(in))
	for i, p := range in {
		out[i] = Point{Time: p.Time, Value: p.Value}
	}
	return out
}
