package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
)

func TestTrackingFetchesImmediatelyWithLookback(t *testing.T) {
	queries := make(chan drepo.TrackingQuery, 4)
	gw := &fakeGateway{track: func(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
		queries <- q
		return &models.TrackingResult{Statistics: models.TrackingStatistics{AverageError: 1}}, nil
	}}
	tk := newManualTicker()
	vm := NewTrackingVM(gw, nil, nil, WithTicker(tk.fn))
	defer vm.Close()

	vm.Start(readySelection("BTC-USD", models.MarketCrypto, "5min"))
	select {
	case q := <-queries:
		if q.Days != 1 || q.Timeframe != "5min" || q.MarketType != models.MarketCrypto {
			t.Fatalf("unexpected query %+v", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no immediate fetch")
	}
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
	waitFor(t, "ticker", func() bool { return tk.interval.Load() != 0 })
	if got := time.Duration(tk.interval.Load()); got != 30*time.Second {
		t.Fatalf("poll interval for 5min: got %s", got)
	}
}

func TestTrackingIntervalPerTimeframe(t *testing.T) {
	for tf, want := range map[string]time.Duration{"5min": 30 * time.Second, "15min": time.Minute, "1h": 5 * time.Minute, "1d": 15 * time.Minute} {
		tk := newManualTicker()
		vm := NewTrackingVM(&fakeGateway{}, nil, nil, WithTicker(tk.fn))
		vm.Start(readySelection("BTC-USD", models.MarketCrypto, tf))
		waitFor(t, "ticker "+tf, func() bool { return tk.interval.Load() != 0 })
		if got := time.Duration(tk.interval.Load()); got != want {
			t.Fatalf("%s: got %s, want %s", tf, got, want)
		}
		vm.Close()
	}
}

func TestTrackingSkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{track: func(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &models.TrackingResult{}, nil
	}}
	m := newFakeMetrics()
	tk := newManualTicker()
	vm := NewTrackingVM(gw, m, nil, WithTicker(tk.fn))
	defer vm.Close()

	vm.Start(readySelection("AAPL", models.MarketStocks, "1d"))
	waitFor(t, "first call", func() bool { return gw.trackCalls.Load() == 1 })

	tk.ch <- time.Now()
	tk.ch <- time.Now()
	waitFor(t, "skips", func() bool { return m.get(func(m *fakeMetrics) int { return m.skipped }) == 2 })
	if vm.Refresh() {
		t.Fatalf("refresh while busy must be skipped")
	}
	if gw.trackCalls.Load() != 1 {
		t.Fatalf("overlapping ticks issued calls: %d", gw.trackCalls.Load())
	}

	release <- struct{}{}
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
	waitFor(t, "idle poller", func() bool { return vm.Refresh() })
	waitFor(t, "second call", func() bool { return gw.trackCalls.Load() == 2 })
	release <- struct{}{}
	if gw.maxInFlight.Load() != 1 {
		t.Fatalf("concurrent gateway calls: %d", gw.maxInFlight.Load())
	}
}

func TestTrackingFailureThenRecovery(t *testing.T) {
	fail := make(chan bool, 2)
	fail <- true
	fail <- false
	gw := &fakeGateway{track: func(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
		if <-fail {
			return nil, errors.New("connection refused")
		}
		return &models.TrackingResult{Statistics: models.TrackingStatistics{AverageError: 2}}, nil
	}}
	tk := newManualTicker()
	vm := NewTrackingVM(gw, nil, nil, WithTicker(tk.fn))
	defer vm.Close()

	vm.Start(readySelection("AAPL", models.MarketStocks, "1d"))
	waitFor(t, "failure", func() bool { return vm.State().Status == models.StatusFailure })
	if vm.State().Message != "Failed to fetch tracking data" {
		t.Fatalf("unexpected message %q", vm.State().Message)
	}
	tk.ch <- time.Now()
	waitFor(t, "recovery", func() bool { return vm.State().Status == models.StatusSuccess })
	if vm.State().Payload.Statistics.AverageError != 2 {
		t.Fatalf("result not replaced: %+v", vm.State().Payload)
	}
}

func TestTrackingRestartDiscardsStale(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{track: func(ctx context.Context, q drepo.TrackingQuery) (*models.TrackingResult, error) {
		if q.Ticker == "OLD" {
			<-release
			return &models.TrackingResult{Statistics: models.TrackingStatistics{AverageError: 99}}, nil
		}
		return &models.TrackingResult{Statistics: models.TrackingStatistics{AverageError: 1}}, nil
	}}
	m := newFakeMetrics()
	vm := NewTrackingVM(gw, m, nil, WithTicker(newManualTicker().fn))
	defer vm.Close()

	vm.Start(readySelection("OLD", models.MarketStocks, "1d"))
	waitFor(t, "old call", func() bool { return gw.trackCalls.Load() == 1 })
	vm.Start(readySelection("NEW", models.MarketStocks, "1d"))
	waitFor(t, "new result", func() bool { return vm.State().Status == models.StatusSuccess })
	close(release)
	waitFor(t, "stale discard", func() bool { return m.get(func(m *fakeMetrics) int { return m.stale["tracking"] }) == 1 })
	if vm.State().Payload.Statistics.AverageError != 1 {
		t.Fatalf("stale tracking result applied")
	}
}

func TestTrackingStopClearsAndHalts(t *testing.T) {
	gw := &fakeGateway{}
	tk := newManualTicker()
	vm := NewTrackingVM(gw, nil, nil, WithTicker(tk.fn))

	vm.Start(readySelection("AAPL", models.MarketStocks, "1d"))
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
	vm.Stop()
	if vm.Running() || vm.State().Status != models.StatusIdle || vm.State().Payload != nil {
		t.Fatalf("stop should clear state: %+v", vm.State())
	}
	if vm.Refresh() {
		t.Fatalf("refresh after stop must do nothing")
	}
	vm.Close()
	select {
	case tk.ch <- time.Now():
		t.Fatalf("poll loop still running after close")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTrackingStartWithoutTickerStops(t *testing.T) {
	gw := &fakeGateway{}
	vm := NewTrackingVM(gw, nil, nil, WithTicker(newManualTicker().fn))
	defer vm.Close()
	vm.Start(readySelection("", models.MarketStocks, "1d"))
	if vm.Running() || gw.trackCalls.Load() != 0 {
		t.Fatalf("tracking must not start without a ticker")
	}
}

func TestTrackingSnapshotCarriesPollerSelection(t *testing.T) {
	vm := NewTrackingVM(&fakeGateway{}, nil, nil, WithTicker(newManualTicker().fn))
	defer vm.Close()

	if _, key := vm.Snapshot(); key != (models.SelectionKey{}) {
		t.Fatalf("idle key = %+v", key)
	}
	vm.Start(readySelection("ETH-USD", models.MarketCrypto, "1h"))
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })

	_, key := vm.Snapshot()
	want := models.SelectionKey{Ticker: "ETH-USD", Market: models.MarketCrypto, Timeframe: "1h"}
	if key != want {
		t.Fatalf("key = %+v, want %+v", key, want)
	}
	vm.Stop()
	if _, key := vm.Snapshot(); key != (models.SelectionKey{}) {
		t.Fatalf("stopped key = %+v", key)
	}
}
