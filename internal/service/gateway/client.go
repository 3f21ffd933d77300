package gateway

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	xhttp "StockTime/pkg/http"
	"StockTime/pkg/logger"
)

// HTTPGateway talks to the prediction service over its JSON HTTP API.
type HTTPGateway struct {
	baseURL string
	client  *xhttp.Client
	metrics drepo.Metrics
	log     *logger.Logger
}

// Option configures HTTPGateway.
type Option func(*HTTPGateway)

// WithClient replaces the underlying HTTP client.
func WithClient(c *xhttp.Client) Option {
	return func(g *HTTPGateway) { g.client = c }
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(g *HTTPGateway) { g.log = l }
}

// New builds a gateway for the service rooted at baseURL.
func New(baseURL string, timeout time.Duration, metrics drepo.Metrics, opts ...Option) *HTTPGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("stocktime-dashboard")),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchPrediction posts the selection to /predict.
func (g *HTTPGateway) FetchPrediction(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
	start := time.Now()
	var res models.PredictionResult
	err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    g.baseURL + "/predict",
		Body:   q,
	}, &res)
	g.observe("predict", err, start, q.Ticker)
	if err != nil {
		return nil, newGatewayError("predict", DefaultPredictMessage, err)
	}
	return &res, nil
}

// FetchTracking reads accuracy data from /track_predictions.
func (g *HTTPGateway) FetchTracking(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
	start := time.Now()
	var res models.TrackingResult
	err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         g.baseURL + "/track_predictions",
		QueryParams: trackingParams(q),
	}, &res)
	g.observe("track", err, start, q.Ticker)
	if err != nil {
		return nil, newGatewayError("track", DefaultTrackingMessage, err)
	}
	return &res, nil
}

func (g *HTTPGateway) observe(op string, err error, start time.Time, ticker string) {
	d := time.Since(start)
	if g.metrics != nil {
		g.metrics.RecordGatewayCall(op, err, d)
	}
	if g.log == nil {
		return
	}
	if err != nil {
		g.log.Warn("gateway call failed",
			logger.String("op", op),
			logger.Ticker(ticker),
			logger.Duration("duration_ms", d),
			logger.Error(err),
		)
		return
	}
	g.log.Debug("gateway call",
		logger.String("op", op),
		logger.Ticker(ticker),
		logger.Duration("duration_ms", d),
	)
}

func trackingParams(q drepo.TrackingQuery) url.Values {
	return url.Values{
		"ticker":     {q.Ticker},
		"marketType": {string(q.MarketType)},
		"timeframe":  {q.Timeframe},
		"days":       {strconv.Itoa(q.Days)},
	}
}

var _ drepo.PredictionGateway = (*HTTPGateway)(nil)
