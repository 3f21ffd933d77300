package usecase

import (
	"context"
	"sync"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/service/gateway"
	"StockTime/pkg/logger"
)

type PredictionState = models.RequestState[models.PredictionResult]

// PredictionVM runs predict calls for the current selection.
// A new Trigger cancels the call in flight; only the latest generation may write state.
type PredictionVM struct {
	gateway drepo.PredictionGateway
	metrics drepo.Metrics
	log     *logger.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	key      models.SelectionKey
	state    PredictionState
	onChange func(PredictionState, models.SelectionKey)
	wg       sync.WaitGroup
}

func NewPredictionVM(gw drepo.PredictionGateway, metrics drepo.Metrics, log *logger.Logger) *PredictionVM {
	if log == nil {
		log = logger.NewNop()
	}
	return &PredictionVM{gateway: gw, metrics: metrics, log: log, state: models.Idle[models.PredictionResult](0)}
}

// OnChange registers the listener called after every state transition.
// The listener runs with the view model locked and must not call back into it.
func (vm *PredictionVM) OnChange(fn func(PredictionState, models.SelectionKey)) {
	vm.mu.Lock()
	vm.onChange = fn
	vm.mu.Unlock()
}

// State returns the current request state.
func (vm *PredictionVM) State() PredictionState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Snapshot returns the state together with the selection it belongs to.
func (vm *PredictionVM) Snapshot() (PredictionState, models.SelectionKey) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state, vm.key
}

// Trigger starts a predict call for sel. It returns false without touching state
// when sel has no market or ticker. The call outlives ctx's cancellation but keeps its values.
func (vm *PredictionVM) Trigger(ctx context.Context, sel models.Selection) (PredictionState, bool) {
	if !sel.Ready() {
		return vm.State(), false
	}

	vm.mu.Lock()
	if vm.cancel != nil {
		vm.cancel()
	}
	vm.gen++
	gen := vm.gen
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	vm.cancel = cancel
	vm.key = sel.Key()
	vm.setLocked(models.Loading[models.PredictionResult](gen))
	st := vm.state
	vm.wg.Add(1)
	vm.mu.Unlock()

	q := drepo.PredictionQuery{Ticker: sel.Ticker, MarketType: sel.Market(), Timeframe: sel.Timeframe}
	go func() {
		defer vm.wg.Done()
		defer cancel()
		res, err := vm.gateway.FetchPrediction(callCtx, q)
		vm.complete(gen, res, err)
	}()
	return st, true
}

// Invalidate drops any result and cancels the call in flight.
func (vm *PredictionVM) Invalidate() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.cancel != nil {
		vm.cancel()
		vm.cancel = nil
	}
	vm.gen++
	vm.key = models.SelectionKey{}
	if vm.state.Status == models.StatusIdle {
		vm.state.Generation = vm.gen
		return
	}
	vm.setLocked(models.Idle[models.PredictionResult](vm.gen))
}

// Close invalidates and waits for outstanding calls to return.
func (vm *PredictionVM) Close() {
	vm.Invalidate()
	vm.wg.Wait()
}

func (vm *PredictionVM) complete(gen uint64, res *models.PredictionResult, err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if gen != vm.gen {
		if vm.metrics != nil {
			vm.metrics.RecordStaleDiscard("prediction")
		}
		vm.log.Debug("discarding stale prediction", logger.Generation(gen), logger.Uint64("current", vm.gen))
		return
	}
	vm.cancel = nil
	if err != nil {
		msg := gateway.MessageOf(err, gateway.DefaultPredictMessage)
		vm.log.Warn("prediction failed", logger.Ticker(vm.key.Ticker), logger.String("message", msg))
		vm.setLocked(models.Failure[models.PredictionResult](gen, msg))
		return
	}
	vm.setLocked(models.Success(gen, res))
}

func (vm *PredictionVM) setLocked(st PredictionState) {
	vm.state = st
	if vm.onChange != nil {
		vm.onChange(st, vm.key)
	}
}
