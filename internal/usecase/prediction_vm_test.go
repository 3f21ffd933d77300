package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/service/gateway"
)

func TestPredictRequiresTicker(t *testing.T) {
	gw := &fakeGateway{}
	vm := NewPredictionVM(gw, nil, nil)
	defer vm.Close()

	sel := readySelection("", models.MarketStocks, "1d")
	st, ok := vm.Trigger(context.Background(), sel)
	if ok {
		t.Fatalf("trigger with empty ticker accepted")
	}
	if st.Status != models.StatusIdle || vm.State().Status != models.StatusIdle {
		t.Fatalf("state left idle expected, got %s", vm.State().Status)
	}
	if _, ok := vm.Trigger(context.Background(), models.Selection{Ticker: "AAPL"}); ok {
		t.Fatalf("trigger without market accepted")
	}
	if gw.predictCalls.Load() != 0 {
		t.Fatalf("gateway called %d times", gw.predictCalls.Load())
	}
}

func TestPredictLoadingThenSuccess(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{predict: func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
		<-release
		return &models.PredictionResult{Predictions: []float64{1, 2}}, nil
	}}
	vm := NewPredictionVM(gw, nil, nil)
	defer vm.Close()

	var seen []models.RequestStatus
	vm.OnChange(func(st PredictionState, _ models.SelectionKey) { seen = append(seen, st.Status) })

	st, ok := vm.Trigger(context.Background(), readySelection("AAPL", models.MarketStocks, "1d"))
	if !ok || st.Status != models.StatusLoading {
		t.Fatalf("expected loading, got %+v", st)
	}
	close(release)
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
	if got := vm.State().Payload.Predictions; len(got) != 2 {
		t.Fatalf("unexpected payload %v", got)
	}
	if len(seen) != 2 || seen[0] != models.StatusLoading || seen[1] != models.StatusSuccess {
		t.Fatalf("unexpected transitions %v", seen)
	}
}

func TestPredictLatestTriggerWins(t *testing.T) {
	slow := make(chan struct{})
	gw := &fakeGateway{predict: func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
		if q.Ticker == "OLD" {
			<-slow
			return &models.PredictionResult{Predictions: []float64{1}}, nil
		}
		return &models.PredictionResult{Predictions: []float64{2}}, nil
	}}
	m := newFakeMetrics()
	vm := NewPredictionVM(gw, m, nil)
	defer vm.Close()

	vm.Trigger(context.Background(), readySelection("OLD", models.MarketStocks, "1d"))
	vm.Trigger(context.Background(), readySelection("NEW", models.MarketStocks, "1d"))
	waitFor(t, "new result", func() bool { return vm.State().Status == models.StatusSuccess })

	close(slow)
	waitFor(t, "stale discard", func() bool { return m.get(func(m *fakeMetrics) int { return m.stale["prediction"] }) == 1 })

	st, key := vm.Snapshot()
	if st.Payload.Predictions[0] != 2 || key.Ticker != "NEW" {
		t.Fatalf("stale response overwrote state: %+v %+v", st.Payload, key)
	}
}

func TestPredictTriggerCancelsPrevious(t *testing.T) {
	cancelled := make(chan struct{})
	gw := &fakeGateway{predict: func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
		if q.Ticker == "OLD" {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return &models.PredictionResult{}, nil
	}}
	vm := NewPredictionVM(gw, nil, nil)
	defer vm.Close()

	vm.Trigger(context.Background(), readySelection("OLD", models.MarketStocks, "1d"))
	vm.Trigger(context.Background(), readySelection("NEW", models.MarketStocks, "1d"))
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("previous call was not cancelled")
	}
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
}

func TestPredictSurvivesCallerContext(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{predict: func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &models.PredictionResult{}, nil
	}}
	vm := NewPredictionVM(gw, nil, nil)
	defer vm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	vm.Trigger(ctx, readySelection("AAPL", models.MarketStocks, "1d"))
	cancel()
	close(release)
	waitFor(t, "success", func() bool { return vm.State().Status == models.StatusSuccess })
}

func TestPredictInvalidateDropsInflight(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{predict: func(ctx context.Context, q drepo.PredictionQuery) (*models.PredictionResult, error) {
		<-release
		return &models.PredictionResult{Predictions: []float64{9}}, nil
	}}
	m := newFakeMetrics()
	vm := NewPredictionVM(gw, m, nil)
	defer vm.Close()

	vm.Trigger(context.Background(), readySelection("AAPL", models.MarketStocks, "1d"))
	vm.Invalidate()
	close(release)
	waitFor(t, "stale discard", func() bool { return m.get(func(m *fakeMetrics) int { return m.stale["prediction"] }) == 1 })
	if st := vm.State(); st.Status != models.StatusIdle || st.Payload != nil {
		t.Fatalf("invalidated state should be idle, got %+v", st)
	}
}

func TestPredictFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"service message", &gateway.GatewayError{Op: "predict", Status: 400, Message: "No data found for ticker ZZZZ"}, "No data found for ticker ZZZZ"},
		{"unknown error", errors.New("boom"), gateway.DefaultPredictMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{predict: func(context.Context, drepo.PredictionQuery) (*models.PredictionResult, error) {
				return nil, tc.err
			}}
			vm := NewPredictionVM(gw, nil, nil)
			defer vm.Close()

			vm.Trigger(context.Background(), readySelection("ZZZZ", models.MarketStocks, "1d"))
			waitFor(t, "failure", func() bool { return vm.State().Status == models.StatusFailure })
			if got := vm.State().Message; got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
			if vm.State().Payload != nil {
				t.Fatalf("failure must not carry a payload")
			}
		})
	}
}
