// Package render is the boundary between view models and whatever draws charts.
// View models hand over a RenderRequest; adapters here own every imperative chart call.
package render

import "context"

// SeriesKind names the series types a chart supports.
type SeriesKind string

const (
	SeriesCandlestick SeriesKind = "candlestick"
	SeriesLine        SeriesKind = "line"
)

// ChartOptions is the layout of a chart.
type ChartOptions struct {
	Height      int    `json:"height"`
	Background  string `json:"background"`
	TextColor   string `json:"textColor"`
	GridColor   string `json:"gridColor"`
	TimeVisible bool   `json:"timeVisible"`
}

// SeriesOptions is the styling of one series.
type SeriesOptions struct {
	Title     string `json:"title,omitempty"`
	Color     string `json:"color,omitempty"`
	UpColor   string `json:"upColor,omitempty"`
	DownColor string `json:"downColor,omitempty"`
	LineWidth int    `json:"lineWidth,omitempty"`
	LineStyle int    `json:"lineStyle,omitempty"`
}

// Point is one data point. Candlestick series use OHLC, line series use Value.
type Point struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open,omitempty"`
	High  float64 `json:"high,omitempty"`
	Low   float64 `json:"low,omitempty"`
	Close float64 `json:"close,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// ChartFactory creates charts inside a container.
type ChartFactory interface {
	CreateChart(ctx context.Context, container string, opts ChartOptions) (Chart, error)
}

// Chart is one live chart instance.
type Chart interface {
	AddCandlestickSeries(opts SeriesOptions) Series
	AddLineSeries(opts SeriesOptions) Series
	FitContent()
	Remove()
}

// Series is one data series on a chart.
type Series interface {
	SetData(points []Point)
}

// DefaultChartOptions is the dark dashboard layout.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Height:      400,
		Background:  "#1a1d1e",
		TextColor:   "#DDD",
		GridColor:   "#2c2c2c",
		TimeVisible: true,
	}
}

var (
	candleSeriesOptions = SeriesOptions{UpColor: "#26a69a", DownColor: "#ef5350"}
	predictionOptions   = SeriesOptions{Title: "Predictions", Color: "#2962FF", LineWidth: 2, LineStyle: 1}
)
