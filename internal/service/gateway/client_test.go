package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/pkg/cache"
	xhttp "StockTime/pkg/http"
	"StockTime/pkg/metrics"
)

func TestFetchPredictionPostsSelection(t *testing.T) {
	var got drepo.PredictionQuery
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"historicalData":[{"time":"2024-01-01","open":99,"high":101,"low":98,"close":100}],"predictions":[105,110]}`))
	}))
	defer srv.Close()

	g := New(srv.URL+"/", time.Second, metrics.Nop{})
	res, err := g.FetchPrediction(context.Background(), drepo.PredictionQuery{Ticker: "AAPL", MarketType: models.MarketStocks, Timeframe: "1d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Ticker != "AAPL" || got.MarketType != models.MarketStocks || got.Timeframe != "1d" {
		t.Fatalf("unexpected body %+v", got)
	}
	if len(res.HistoricalData) != 1 || res.HistoricalData[0].Close != 100 {
		t.Fatalf("unexpected history %+v", res.HistoricalData)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !res.HistoricalData[0].Time.Equal(want) {
		t.Fatalf("unexpected time %v", res.HistoricalData[0].Time)
	}
	if len(res.Predictions) != 2 || res.Predictions[1] != 110 {
		t.Fatalf("unexpected predictions %v", res.Predictions)
	}
}

func TestGatewayClientHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "probe/1" {
			t.Errorf("user agent %q", ua)
		}
		if a := r.Header.Get("Accept"); a != "application/json" {
			t.Errorf("accept %q", a)
		}
		if r.Method == http.MethodGet && r.Header.Get("Content-Type") != "" {
			t.Errorf("GET carries a content type")
		}
		_, _ = w.Write([]byte(`{"predictions":[],"statistics":{}}`))
	}))
	defer srv.Close()

	client := xhttp.NewClient(xhttp.WithUserAgent("probe/1"), xhttp.WithTransport(http.DefaultTransport))
	g := New(srv.URL, time.Second, metrics.Nop{}, WithClient(client))
	if _, err := g.FetchTracking(context.Background(), drepo.TrackingQuery{Ticker: "AAPL", MarketType: models.MarketStocks, Timeframe: "1d", Days: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchTrackingQueryAndPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/track_predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q.Get("ticker") != "BTC-USD" || q.Get("marketType") != "crypto" || q.Get("timeframe") != "5min" || q.Get("days") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{
			"predictions":[
				{"id":"1","prediction_time":"2024-01-01T10:00:00Z","target_time":"2024-01-01T10:05:00Z","predicted_price":42000.5,"actual_price":42100,"error_percentage":-0.24},
				{"id":"2","prediction_time":"2024-01-01T10:05:00Z","target_time":"2024-01-01T10:10:00Z","predicted_price":42050,"actual_price":null,"error_percentage":null}
			],
			"statistics":{"average_error":0.24,"accuracy_within_1_percent":100,"accuracy_within_5_percent":100}
		}`))
	}))
	defer srv.Close()

	g := New(srv.URL, time.Second, nil)
	res, err := g.FetchTracking(context.Background(), drepo.TrackingQuery{Ticker: "BTC-USD", MarketType: models.MarketCrypto, Timeframe: "5min", Days: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Predictions) != 2 {
		t.Fatalf("want 2 predictions, got %d", len(res.Predictions))
	}
	if !res.Predictions[0].Resolved() || *res.Predictions[0].ErrorPercentage != -0.24 {
		t.Fatalf("first prediction should be resolved: %+v", res.Predictions[0])
	}
	if res.Predictions[1].Resolved() || res.Predictions[1].ErrorPercentage != nil {
		t.Fatalf("second prediction should be pending: %+v", res.Predictions[1])
	}
	if res.Statistics.AccuracyWithin1Percent != 100 {
		t.Fatalf("unexpected statistics %+v", res.Statistics)
	}
}

func TestFetchTrackingNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"predictions":[
				{"id":1,"prediction_time":"2024-01-01","target_time":"2024-01-02","predicted_price":100,"actual_price":null,"error_percentage":null},
				{"id":"b-2","prediction_time":"2024-01-01","target_time":"2024-01-02","predicted_price":101,"actual_price":null,"error_percentage":null}
			],
			"statistics":{"average_error":0,"accuracy_within_1_percent":0,"accuracy_within_5_percent":0}
		}`))
	}))
	defer srv.Close()

	g := New(srv.URL, time.Second, nil)
	res, err := g.FetchTracking(context.Background(), drepo.TrackingQuery{Ticker: "AAPL", MarketType: models.MarketStocks, Timeframe: "1d", Days: 7})
	if err != nil {
		t.Fatalf("numeric id rejected: %v", err)
	}
	if res.Predictions[0].ID != "1" || res.Predictions[1].ID != "b-2" {
		t.Fatalf("ids = %q, %q", res.Predictions[0].ID, res.Predictions[1].ID)
	}
}

func TestGatewayErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"service message", http.StatusBadRequest, `{"error":"No data found for ticker ZZZZ"}`, "No data found for ticker ZZZZ"},
		{"no error field", http.StatusInternalServerError, `{"detail":"x"}`, DefaultPredictMessage},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, DefaultPredictMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			g := New(srv.URL, time.Second, nil)
			_, err := g.FetchPrediction(context.Background(), drepo.PredictionQuery{Ticker: "ZZZZ"})
			if err == nil {
				t.Fatalf("expected error")
			}
			var ge *GatewayError
			if !errors.As(err, &ge) {
				t.Fatalf("expected GatewayError, got %T", err)
			}
			if ge.Status != tc.status {
				t.Fatalf("status: got %d, want %d", ge.Status, tc.status)
			}
			if got := MessageOf(err, DefaultPredictMessage); got != tc.want {
				t.Fatalf("message: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGatewayNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := New(url, time.Second, nil)
	_, err := g.FetchTracking(context.Background(), drepo.TrackingQuery{Ticker: "AAPL"})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if ge.Status != 0 {
		t.Fatalf("network failure should have no status, got %d", ge.Status)
	}
	if MessageOf(err, DefaultTrackingMessage) == "" {
		t.Fatalf("expected a message")
	}
	if got := MessageOf(errors.New("plain"), "fallback"); got != "fallback" {
		t.Fatalf("plain errors use fallback, got %q", got)
	}
}

func TestCachedGatewayTracking(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"predictions":[],"statistics":{"average_error":1.5}}`))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()

	g := NewCachedGateway(New(srv.URL, time.Second, nil), mem, 0, time.Minute, nil)
	q := drepo.TrackingQuery{Ticker: "AAPL", MarketType: models.MarketStocks, Timeframe: "1d", Days: 7}
	for i := 0; i < 3; i++ {
		res, err := g.FetchTracking(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Statistics.AverageError != 1.5 {
			t.Fatalf("unexpected statistics %+v", res.Statistics)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	q.Days = 1
	if _, err := g.FetchTracking(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("different query must miss the cache, got %d calls", got)
	}
}

func TestCachedGatewayPredictBypassedByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"historicalData":[],"predictions":[1]}`))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()

	g := NewCachedGateway(New(srv.URL, time.Second, nil), mem, 0, time.Minute, nil)
	for i := 0; i < 2; i++ {
		if _, err := g.FetchPrediction(context.Background(), drepo.PredictionQuery{Ticker: "AAPL"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("predict must not be cached with zero ttl, got %d calls", got)
	}
}

func TestCachedGatewayInvalidateTracking(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"predictions":[],"statistics":{}}`))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()

	g := NewCachedGateway(New(srv.URL, time.Second, nil), mem, 0, time.Minute, nil)
	q := drepo.TrackingQuery{Ticker: "AAPL", MarketType: models.MarketStocks, Timeframe: "1d", Days: 7}
	_, _ = g.FetchTracking(context.Background(), q)
	if err := g.InvalidateTracking(context.Background(), "AAPL"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = g.FetchTracking(context.Background(), q)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", got)
	}
}
