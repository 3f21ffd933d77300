package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
)

type fakeGateway struct {
	predictCalls atomic.Int32
	trackCalls   atomic.Int32
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32

	predict func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error)
	track   func(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error)
}

func (g *fakeGateway) FetchPrediction(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
	g.predictCalls.Add(1)
	if g.predict == nil {
		return &models.PredictionResult{}, nil
	}
	return g.predict(ctx, q)
}

func (g *fakeGateway) FetchTracking(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
	g.trackCalls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.maxInFlight.Load()
		if n <= m || g.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if g.track == nil {
		return &models.TrackingResult{}, nil
	}
	return g.track(ctx, q)
}

type fakeMetrics struct {
	mu          sync.Mutex
	stale       map[string]int
	skipped     int
	ticks       int
	active      int
	errorsByKey map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{stale: map[string]int{}, errorsByKey: map[string]int{}}
}

func (m *fakeMetrics) RecordGatewayCall(string, error, time.Duration) {}

func (m *fakeMetrics) RecordStaleDiscard(vm string) {
	m.mu.Lock()
	m.stale[vm]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordPollSkipped() {
	m.mu.Lock()
	m.skipped++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordPollTick(string) {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordEvent(string, error) {}

func (m *fakeMetrics) RecordActiveSessions(n int) {
	m.mu.Lock()
	m.active = n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errorsByKey[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) get(fn func(*fakeMetrics) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

// manualTicker hands the poll loop a channel the test drives.
type manualTicker struct {
	ch       chan time.Time
	interval atomic.Int64
}

func newManualTicker() *manualTicker { return &manualTicker{ch: make(chan time.Time)} }

func (t *manualTicker) fn(d time.Duration) (<-chan time.Time, func()) {
	t.interval.Store(int64(d))
	return t.ch, func() {}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func market(id models.MarketID) *models.MarketID { return &id }

func readySelection(ticker string, m models.MarketID, tf string) models.Selection {
	return models.Selection{MarketType: market(m), Ticker: ticker, Timeframe: tf, ActiveTab: models.TabPredict}
}

type captureSink struct {
	mu     sync.Mutex
	events []*models.DashboardEvent
}

func (c *captureSink) Submit(_ context.Context, ev *models.DashboardEvent) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Kind
	}
	return out
}

var _ drepo.Metrics = (*fakeMetrics)(nil)
