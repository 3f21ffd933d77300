package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/service/gateway"
	"StockTime/pkg/logger"
)

type TrackingState = models.RequestState[models.TrackingResult]

// TickerFunc returns a tick channel for interval d and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// poller is the repeating fetch bound to one generation.
type poller struct {
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	query    drepo.TrackingQuery
	inFlight atomic.Bool
}

// TrackingVM polls tracking data for the selection it was started with.
// A tick that fires while the previous call is outstanding is skipped.
type TrackingVM struct {
	gateway   drepo.PredictionGateway
	metrics   drepo.Metrics
	log       *logger.Logger
	newTicker TickerFunc

	mu       sync.Mutex
	gen      uint64
	active   *poller
	state    TrackingState
	onChange func(TrackingState, models.SelectionKey)
	wg       sync.WaitGroup
}

type TrackingOption func(*TrackingVM)

// WithTicker replaces the clock driving the poll loop.
func WithTicker(fn TickerFunc) TrackingOption {
	return func(vm *TrackingVM) { vm.newTicker = fn }
}

func NewTrackingVM(gw drepo.PredictionGateway, metrics drepo.Metrics, log *logger.Logger, opts ...TrackingOption) *TrackingVM {
	if log == nil {
		log = logger.NewNop()
	}
	vm := &TrackingVM{
		gateway:   gw,
		metrics:   metrics,
		log:       log,
		newTicker: realTicker,
		state:     models.Idle[models.TrackingResult](0),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// OnChange registers the listener called after every state transition.
// The listener runs with the view model locked and must not call back into it.
func (vm *TrackingVM) OnChange(fn func(TrackingState, models.SelectionKey)) {
	vm.mu.Lock()
	vm.onChange = fn
	vm.mu.Unlock()
}

func (vm *TrackingVM) State() TrackingState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Running reports whether a poller is bound.
func (vm *TrackingVM) Running() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.active != nil
}

// Start binds a new poller to sel: the previous one is stopped, state is cleared,
// a fetch is issued immediately and then every PollInterval(timeframe).
func (vm *TrackingVM) Start(sel models.Selection) {
	if !sel.Ready() {
		vm.Stop()
		return
	}

	q := drepo.TrackingQuery{
		Ticker:     sel.Ticker,
		MarketType: sel.Market(),
		Timeframe:  sel.Timeframe,
		Days:       drepo.LookbackDays(sel.Market(), sel.Timeframe),
	}
	interval := drepo.PollInterval(sel.Timeframe)

	vm.mu.Lock()
	vm.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{gen: vm.gen, ctx: ctx, cancel: cancel, query: q}
	vm.active = p
	vm.setLocked(models.Loading[models.TrackingResult](p.gen))
	vm.wg.Add(1)
	vm.mu.Unlock()

	vm.log.Debug("tracking started",
		logger.Ticker(q.Ticker),
		logger.String("timeframe", q.Timeframe),
		logger.Duration("interval_ms", interval),
	)
	go vm.loop(p, interval)
}

// Stop tears down the poller and clears state.
func (vm *TrackingVM) Stop() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.active == nil && vm.state.Status == models.StatusIdle {
		return
	}
	vm.stopLocked()
	vm.setLocked(models.Idle[models.TrackingResult](vm.gen))
}

// Refresh issues an out-of-band fetch on the running poller.
// It returns false when nothing is running or a call is already outstanding.
func (vm *TrackingVM) Refresh() bool {
	vm.mu.Lock()
	p := vm.active
	vm.mu.Unlock()
	if p == nil {
		return false
	}
	return vm.tick(p)
}

// Close stops polling and waits for every goroutine to exit.
func (vm *TrackingVM) Close() {
	vm.Stop()
	vm.wg.Wait()
}

func (vm *TrackingVM) stopLocked() {
	if vm.active != nil {
		vm.active.cancel()
		vm.active = nil
	}
	vm.gen++
}

func (vm *TrackingVM) loop(p *poller, interval time.Duration) {
	defer vm.wg.Done()

	vm.tick(p)

	ticks, stop := vm.newTicker(interval)
	defer stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticks:
			if vm.metrics != nil {
				vm.metrics.RecordPollTick(p.query.Timeframe)
			}
			vm.tick(p)
		}
	}
}

// tick starts one fetch unless the poller is stale or already busy.
func (vm *TrackingVM) tick(p *poller) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		if vm.metrics != nil {
			vm.metrics.RecordPollSkipped()
		}
		vm.log.Debug("tracking poll skipped", logger.Ticker(p.query.Ticker))
		return false
	}

	vm.mu.Lock()
	if p.gen != vm.gen {
		vm.mu.Unlock()
		p.inFlight.Store(false)
		return false
	}
	vm.wg.Add(1)
	vm.mu.Unlock()

	go func() {
		defer vm.wg.Done()
		defer p.inFlight.Store(false)
		res, err := vm.gateway.FetchTracking(p.ctx, p.query)
		vm.complete(p, res, err)
	}()
	return true
}

func (vm *TrackingVM) complete(p *poller, res *models.TrackingResult, err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if p.gen != vm.gen {
		if vm.metrics != nil {
			vm.metrics.RecordStaleDiscard("tracking")
		}
		return
	}
	if err != nil {
		msg := gateway.MessageOf(err, gateway.DefaultTrackingMessage)
		vm.log.Warn("tracking fetch failed", logger.Ticker(p.query.Ticker), logger.String("message", msg))
		vm.setLocked(models.Failure[models.TrackingResult](p.gen, msg))
		return
	}
	vm.setLocked(models.Success(p.gen, res))
}

// Snapshot returns the state together with the selection the poller fetches for.
func (vm *TrackingVM) Snapshot() (TrackingState, models.SelectionKey) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state, vm.keyLocked()
}

func (vm *TrackingVM) keyLocked() models.SelectionKey {
	if vm.active == nil {
		return models.SelectionKey{}
	}
	return models.SelectionKey{
		Ticker:    vm.active.query.Ticker,
		Market:    vm.active.query.MarketType,
		Timeframe: vm.active.query.Timeframe,
	}
}

func (vm *TrackingVM) setLocked(st TrackingState) {
	vm.state = st
	if vm.onChange != nil {
		vm.onChange(st, vm.keyLocked())
	}
}
