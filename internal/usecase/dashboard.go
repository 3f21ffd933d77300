package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/render"
	"StockTime/internal/services/projection"
	"StockTime/pkg/logger"
)

// EventSink accepts dashboard events without blocking the caller.
type EventSink interface {
	Submit(ctx context.Context, ev *models.DashboardEvent) error
}

// TrackingInvalidator drops cached tracking snapshots for a ticker.
type TrackingInvalidator interface {
	InvalidateTracking(ctx context.Context, ticker string) error
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Gateway     drepo.PredictionGateway
	Invalidator TrackingInvalidator
	Metrics     drepo.Metrics
	Events      EventSink
	Notifier    render.Broadcaster
	Charts      *render.Library
	Log         *logger.Logger
	Tracking    []TrackingOption
}

// SessionView is the read model of a session.
type SessionView struct {
	ID         string           `json:"id"`
	Selection  models.Selection `json:"selection"`
	Prediction PredictionState  `json:"prediction"`
	Tracking   TrackingState    `json:"tracking"`
	Polling    bool             `json:"polling"`
}

// Session is one dashboard: a selection plus the view models that depend on it.
type Session struct {
	id         string
	selection  *SelectionState
	prediction *PredictionVM
	tracking   *TrackingVM
	invalidate TrackingInvalidator
	projector  *projection.Projector
	charts     *render.ChartHost
	events     EventSink
	notifier   render.Broadcaster
	metrics    drepo.Metrics
	log        *logger.Logger

	lastSeen atomic.Int64

	// opMu serializes selection changes, predict and refresh so each acts
	// on the selection it read.
	opMu sync.Mutex

	renderMu   sync.Mutex
	renderNext *render.RenderRequest
	renderWake chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewSession wires a session with the given id.
func NewSession(id string, deps SessionDeps) *Session {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.SessionID(id))

	s := &Session{
		id:         id,
		selection:  NewSelectionState(),
		prediction: NewPredictionVM(deps.Gateway, deps.Metrics, log),
		tracking:   NewTrackingVM(deps.Gateway, deps.Metrics, log, deps.Tracking...),
		invalidate: deps.Invalidator,
		projector:  projection.NewProjector(log),
		events:     deps.Events,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		log:        log,
		renderWake: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	if deps.Charts != nil {
		s.charts = render.NewChartHost(deps.Charts, render.DefaultChartOptions())
	}
	s.touch()

	s.prediction.OnChange(s.onPrediction)
	s.tracking.OnChange(s.onTracking)

	s.wg.Add(1)
	go s.renderLoop()
	return s
}

func (s *Session) ID() string { return s.id }

// LastSeen is the time of the last client interaction.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// View returns a consistent-enough snapshot for clients.
func (s *Session) View() SessionView {
	s.touch()
	return SessionView{
		ID:         s.id,
		Selection:  s.selection.Snapshot(),
		Prediction: s.prediction.State(),
		Tracking:   s.tracking.State(),
		Polling:    s.tracking.Running(),
	}
}

// SelectMarket switches market and drops everything fetched for the old one.
func (s *Session) SelectMarket(id models.MarketID) bool {
	return s.applySelection(func() bool { return s.selection.SelectMarket(id) })
}

func (s *Session) SelectTicker(raw string) bool {
	return s.applySelection(func() bool { return s.selection.SelectTicker(raw) })
}

func (s *Session) SelectTimeframe(tf string) bool {
	return s.applySelection(func() bool { return s.selection.SelectTimeframe(tf) })
}

// SelectTab starts tracking when switching to the track tab and stops it otherwise.
// Fetched predictions are left untouched.
func (s *Session) SelectTab(tab models.Tab) bool {
	s.touch()
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.selection.SelectTab(tab) {
		return false
	}
	sel := s.selection.Snapshot()
	s.syncTracking(sel)
	s.notify(models.FrameSelection, sel)
	return true
}

// Predict starts a prediction for the current selection.
// It returns false when the selection has no market or ticker, or when the
// selection changed while the request event was being emitted.
func (s *Session) Predict(ctx context.Context) (PredictionState, bool) {
	s.touch()
	sel := s.selection.Snapshot()
	if !sel.Ready() {
		return s.prediction.State(), false
	}
	// Emitted outside opMu: a sink may act on the session.
	s.emit(models.EventPredictionRequested, sel.Key(), "")

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if cur := s.selection.Snapshot(); cur.Key() != sel.Key() {
		s.log.Debug("predict superseded by selection change", logger.Ticker(sel.Ticker))
		return s.prediction.State(), false
	}
	return s.prediction.Trigger(ctx, sel)
}

// Prediction returns the prediction state.
func (s *Session) Prediction() PredictionState {
	s.touch()
	return s.prediction.State()
}

// PredictionTable projects the current prediction into table rows.
func (s *Session) PredictionTable() []projection.PredictionRow {
	st, key := s.prediction.Snapshot()
	if st.Status != models.StatusSuccess {
		return nil
	}
	return projection.PredictionRows(st.Payload, key.Timeframe)
}

// Chart projects the current prediction into chart series.
func (s *Session) Chart() (projection.ChartSeries, bool) {
	s.touch()
	st, key := s.prediction.Snapshot()
	if st.Status != models.StatusSuccess {
		return projection.ChartSeries{}, false
	}
	return s.projector.ProjectChart(st.Payload, key.Timeframe)
}

// Tracking returns the tracking state.
func (s *Session) Tracking() TrackingState {
	s.touch()
	return s.tracking.State()
}

// TrackingTable projects the tracking snapshot into rows plus the statistics line.
func (s *Session) TrackingTable() ([]projection.TrackingRow, projection.StatisticsRow, bool) {
	st, key := s.tracking.Snapshot()
	if st.Status != models.StatusSuccess || st.Payload == nil {
		return nil, projection.StatisticsRow{}, false
	}
	return projection.TrackingRows(st.Payload, key.Timeframe), projection.StatisticsSummary(st.Payload.Statistics), true
}

// RefreshTracking forces a tracking fetch past any cached snapshot. It returns false when
// tracking is not running or a fetch is already outstanding.
func (s *Session) RefreshTracking() bool {
	s.touch()
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.tracking.Running() {
		return false
	}
	if s.invalidate != nil {
		ticker := s.selection.Snapshot().Ticker
		if err := s.invalidate.InvalidateTracking(context.Background(), ticker); err != nil {
			s.log.Warn("tracking cache invalidation failed", logger.Ticker(ticker), logger.Error(err))
		}
	}
	return s.tracking.Refresh()
}

// Close stops every task owned by the session and waits for them.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.prediction.Close()
		s.tracking.Close()
		close(s.done)
		s.wg.Wait()
		if s.charts != nil {
			s.charts.Release()
		}
		s.log.Debug("session closed")
	})
}

// applySelection runs change and, if it altered the selection, invalidates the
// prediction and rebinds tracking, all under opMu.
func (s *Session) applySelection(change func() bool) bool {
	s.touch()
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !change() {
		return false
	}
	sel := s.selection.Snapshot()
	s.prediction.Invalidate()
	s.syncTracking(sel)
	s.notify(models.FrameSelection, sel)
	return true
}

func (s *Session) syncTracking(sel models.Selection) {
	if sel.ActiveTab == models.TabTrack && sel.Ready() {
		s.tracking.Start(sel)
		return
	}
	s.tracking.Stop()
}

// onPrediction runs under the prediction view model lock.
func (s *Session) onPrediction(st PredictionState, key models.SelectionKey) {
	s.notify(models.FramePrediction, st)
	switch st.Status {
	case models.StatusSuccess:
		s.emit(models.EventPredictionCompleted, key, "")
		if series, ok := s.projector.ProjectChart(st.Payload, key.Timeframe); ok {
			s.scheduleRender(&render.RenderRequest{Container: s.id, Ticker: key.Ticker, Market: key.Market, Series: series})
		} else {
			s.scheduleRender(nil)
		}
	case models.StatusFailure:
		s.emit(models.EventPredictionFailed, key, st.Message)
		s.scheduleRender(nil)
	case models.StatusIdle:
		s.scheduleRender(nil)
	}
}

// onTracking runs under the tracking view model lock.
func (s *Session) onTracking(st TrackingState, key models.SelectionKey) {
	s.notify(models.FrameTracking, st)
	switch st.Status {
	case models.StatusSuccess:
		s.emit(models.EventTrackingRefreshed, key, "")
	case models.StatusFailure:
		s.emit(models.EventTrackingFailed, key, st.Message)
	}
}

// scheduleRender queues the latest chart request; nil clears the chart.
func (s *Session) scheduleRender(req *render.RenderRequest) {
	if s.charts == nil {
		return
	}
	s.renderMu.Lock()
	s.renderNext = req
	s.renderMu.Unlock()
	select {
	case s.renderWake <- struct{}{}:
	default:
	}
}

func (s *Session) renderLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.renderWake:
		}
		s.renderMu.Lock()
		req := s.renderNext
		s.renderNext = nil
		s.renderMu.Unlock()

		if req == nil {
			s.charts.Release()
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.charts.Render(ctx, *req); err != nil {
			s.log.Warn("chart render failed", logger.Ticker(req.Ticker), logger.Error(err))
			if s.metrics != nil {
				s.metrics.RecordError("chart_render")
			}
		}
		cancel()
	}
}

func (s *Session) notify(kind string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(s.id, models.Frame{Type: kind, SessionID: s.id, Payload: payload, Timestamp: time.Now().UTC()})
}

func (s *Session) emit(kind string, key models.SelectionKey, msg string) {
	if s.events == nil {
		return
	}
	ev := &models.DashboardEvent{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Kind:      kind,
		Ticker:    key.Ticker,
		Market:    key.Market,
		Timeframe: key.Timeframe,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.Submit(context.Background(), ev); err != nil {
		s.log.Debug("event dropped", logger.String("kind", kind), logger.Error(err))
	}
}
