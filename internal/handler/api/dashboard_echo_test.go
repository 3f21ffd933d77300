package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	models "StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/service/ratelimit"
	"StockTime/internal/usecase"
	xlogger "StockTime/pkg/logger"
	"StockTime/pkg/metrics"
)

type stubGateway struct{}

func (stubGateway) FetchPrediction(_ context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
	return &models.PredictionResult{
		HistoricalData: []models.OHLCPoint{{
			Time: models.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			Open: 99, High: 101, Low: 98, Close: 100,
		}},
		Predictions: []float64{105, 110},
	}, nil
}

func (stubGateway) FetchTracking(context.Context, drepo.TrackingQuery) (*models.TrackingResult, error) {
	return &models.TrackingResult{}, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	reg := usecase.NewSessionRegistry(usecase.SessionDeps{
		Gateway: stubGateway{},
		Metrics: metrics.Nop{},
		Log:     xlogger.NewNop(),
	})
	t.Cleanup(reg.Close)
	e := echo.New()
	NewDashboardEchoHandler(xlogger.NewNop(), reg, limiter).RegisterRoutes(e)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code == http.StatusNoContent {
		return envelope{Status: http.StatusNoContent}
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return env
}

func createSession(t *testing.T, e *echo.Echo, body string) usecase.SessionView {
	t.Helper()
	env := call(t, e, http.MethodPost, "/api/sessions", body)
	if env.Status != http.StatusCreated {
		t.Fatalf("create: status %d data %s", env.Status, env.Data)
	}
	var view usecase.SessionView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func TestCreateSessionAppliesSelection(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"stocks","ticker":" aapl "}`)

	if view.Selection.Market() != models.MarketStocks || view.Selection.Ticker != "AAPL" || view.Selection.Timeframe != "1d" {
		t.Fatalf("selection = %+v", view.Selection)
	}
	if view.Selection.ActiveTab != models.TabPredict {
		t.Fatalf("tab = %q", view.Selection.ActiveTab)
	}
}

func TestSelectTickerStoresUnusualSymbols(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"futures"}`)

	env := call(t, e, http.MethodPut, "/api/sessions/"+view.ID+"/ticker", `{"ticker":"gc=f/x"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status %d data %s", env.Status, env.Data)
	}
	env = call(t, e, http.MethodGet, "/api/sessions/"+view.ID, "")
	var got usecase.SessionView
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Selection.Ticker != "GC=F/X" {
		t.Fatalf("ticker = %q", got.Selection.Ticker)
	}

	long := strings.Repeat("A", 33)
	env = call(t, e, http.MethodPut, "/api/sessions/"+view.ID+"/ticker", `{"ticker":"`+long+`"}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("overlong ticker: status %d", env.Status)
	}
}

func TestPredictFlow(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"stocks","ticker":"AAPL"}`)
	base := "/api/sessions/" + view.ID

	env := call(t, e, http.MethodPost, base+"/predict", "")
	if env.Status != http.StatusAccepted {
		t.Fatalf("predict status %d: %s", env.Status, env.Data)
	}

	var pv PredictionView
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env = call(t, e, http.MethodGet, base+"/prediction", "")
		if err := json.Unmarshal(env.Data, &pv); err != nil {
			t.Fatal(err)
		}
		if pv.State.Status == models.StatusSuccess {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if pv.State.Status != models.StatusSuccess {
		t.Fatalf("prediction never succeeded: %+v", pv.State)
	}
	if len(pv.Rows) != 2 || pv.Rows[0].Time != "2024-01-02" || pv.Rows[0].Price != "$105.00" || pv.Rows[1].Price != "$110.00" {
		t.Fatalf("rows = %+v", pv.Rows)
	}

	env = call(t, e, http.MethodGet, base+"/chart", "")
	if env.Status != http.StatusOK {
		t.Fatalf("chart status %d", env.Status)
	}
}

func TestPredictRequiresTicker(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"crypto"}`)

	env := call(t, e, http.MethodPost, "/api/sessions/"+view.ID+"/predict", "")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", env.Status)
	}
}

func TestPredictRateLimited(t *testing.T) {
	e := newTestServer(t, ratelimit.New(1, 0))
	view := createSession(t, e, `{"market":"stocks","ticker":"AAPL"}`)
	path := "/api/sessions/" + view.ID + "/predict"

	if env := call(t, e, http.MethodPost, path, ""); env.Status != http.StatusAccepted {
		t.Fatalf("first predict status %d", env.Status)
	}
	if env := call(t, e, http.MethodPost, path, ""); env.Status != http.StatusTooManyRequests {
		t.Fatalf("second predict status %d", env.Status)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	if got := rec.Header().Get(echo.HeaderRetryAfter); got != "3600" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestTimeframeNotOffered(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"stocks"}`)

	env := call(t, e, http.MethodPut, "/api/sessions/"+view.ID+"/timeframe", `{"timeframe":"5min"}`)
	if env.Status != http.StatusBadRequest || !strings.Contains(string(env.Data), "ERR_TIMEFRAME") {
		t.Fatalf("status %d data %s", env.Status, env.Data)
	}
}

func TestSessionLookupErrors(t *testing.T) {
	e := newTestServer(t, nil)

	if env := call(t, e, http.MethodGet, "/api/sessions/not-a-uuid", ""); env.Status != http.StatusBadRequest {
		t.Fatalf("invalid id status %d", env.Status)
	}
	if env := call(t, e, http.MethodGet, "/api/sessions/6f1c1f1e-2f7a-4c1e-9d55-0c1d2b3a4e5f", ""); env.Status != http.StatusNotFound {
		t.Fatalf("unknown id status %d", env.Status)
	}
}

func TestDeleteSession(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, "")
	path := "/api/sessions/" + view.ID

	if env := call(t, e, http.MethodDelete, path, ""); env.Status != http.StatusNoContent {
		t.Fatalf("delete status %d", env.Status)
	}
	if env := call(t, e, http.MethodGet, path, ""); env.Status != http.StatusNotFound {
		t.Fatalf("get after delete status %d", env.Status)
	}
}

func TestListSessions(t *testing.T) {
	e := newTestServer(t, nil)
	a := createSession(t, e, `{"market":"stocks"}`)
	b := createSession(t, e, "")

	env := call(t, e, http.MethodGet, "/api/sessions", "")
	if env.Status != http.StatusOK {
		t.Fatalf("status %d", env.Status)
	}
	var list struct {
		Rows  []usecase.SessionView `json:"rows"`
		Total int64                 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 || len(list.Rows) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list.Rows[0].ID > list.Rows[1].ID {
		t.Fatal("rows not ordered by id")
	}
	seen := map[string]bool{list.Rows[0].ID: true, list.Rows[1].ID: true}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("missing sessions: %+v", list.Rows)
	}
}

func TestTrackingTabStartsPolling(t *testing.T) {
	e := newTestServer(t, nil)
	view := createSession(t, e, `{"market":"stocks","ticker":"AAPL","tab":"track"}`)

	env := call(t, e, http.MethodGet, "/api/sessions/"+view.ID+"/tracking", "")
	var tv TrackingView
	if err := json.Unmarshal(env.Data, &tv); err != nil {
		t.Fatal(err)
	}
	if !tv.Polling {
		t.Fatalf("tracking not polling: %+v", tv)
	}
}

func TestMarkets(t *testing.T) {
	e := newTestServer(t, nil)
	env := call(t, e, http.MethodGet, "/api/markets", "")
	var ms []models.MarketDefinition
	if err := json.Unmarshal(env.Data, &ms); err != nil {
		t.Fatal(err)
	}
	if len(ms) != 3 || ms[2].ID != models.MarketCrypto {
		t.Fatalf("markets = %+v", ms)
	}
}
