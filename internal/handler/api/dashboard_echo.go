package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	models "StockTime/internal/domain/models"
	"StockTime/internal/service/ratelimit"
	"StockTime/internal/services/projection"
	"StockTime/internal/usecase"
	xhttp "StockTime/pkg/http"
	xlogger "StockTime/pkg/logger"
)

// PredictionView is the prediction state plus its table projection.
type PredictionView struct {
	State usecase.PredictionState    `json:"state"`
	Rows  []projection.PredictionRow `json:"rows,omitempty"`
}

// TrackingView is the tracking state plus its table projection.
type TrackingView struct {
	State      usecase.TrackingState     `json:"state"`
	Polling    bool                      `json:"polling"`
	Rows       []projection.TrackingRow  `json:"rows,omitempty"`
	Statistics *projection.StatisticsRow `json:"statistics,omitempty"`
}

// DashboardEchoHandler exposes dashboard sessions over JSON.
type DashboardEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionRegistry
	limiter  *ratelimit.Limiter
}

// NewDashboardEchoHandler builds the handler; a nil limiter disables predict throttling.
func NewDashboardEchoHandler(logger *xlogger.Logger, sessions *usecase.SessionRegistry, limiter *ratelimit.Limiter) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, sessions: sessions, limiter: limiter}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/markets", h.Markets)
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DeleteSession)
	g.PUT("/sessions/:id/market", h.SelectMarket)
	g.PUT("/sessions/:id/ticker", h.SelectTicker)
	g.PUT("/sessions/:id/timeframe", h.SelectTimeframe)
	g.PUT("/sessions/:id/tab", h.SelectTab)
	g.POST("/sessions/:id/predict", h.Predict)
	g.GET("/sessions/:id/prediction", h.Prediction)
	g.GET("/sessions/:id/chart", h.Chart)
	g.GET("/sessions/:id/tracking", h.Tracking)
	g.POST("/sessions/:id/tracking/refresh", h.RefreshTracking)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

func (h *DashboardEchoHandler) Markets(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, models.Markets())
}

func (h *DashboardEchoHandler) ListSessions(c echo.Context) error {
	views := h.sessions.List()
	return xhttp.ListResponse(c, views, int64(len(views)))
}

func (h *DashboardEchoHandler) CreateSession(c echo.Context) error {
	req := &models.CreateSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Create()
	if err != nil {
		h.logger.Warn("create session failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	if req.Market != "" {
		s.SelectMarket(models.MarketID(req.Market))
	}
	if req.Ticker != "" {
		s.SelectTicker(req.Ticker)
	}
	if req.Timeframe != "" {
		s.SelectTimeframe(req.Timeframe)
	}
	s.SelectTab(models.Tab(req.Tab))
	return xhttp.CreatedResponse(c, s.View())
}

func (h *DashboardEchoHandler) GetSession(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *DashboardEchoHandler) DeleteSession(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.Delete(req.ID); err != nil {
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	if h.limiter != nil {
		h.limiter.Forget(req.ID)
	}
	return xhttp.NoContentResponse(c)
}

func (h *DashboardEchoHandler) SelectMarket(c echo.Context) error {
	req := &models.SelectMarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	s.SelectMarket(models.MarketID(req.Market))
	return xhttp.SuccessResponse(c, s.View())
}

func (h *DashboardEchoHandler) SelectTicker(c echo.Context) error {
	req := &models.SelectTickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	s.SelectTicker(req.Ticker)
	return xhttp.SuccessResponse(c, s.View())
}

func (h *DashboardEchoHandler) SelectTimeframe(c echo.Context) error {
	req := &models.SelectTimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	if !s.SelectTimeframe(req.Timeframe) {
		sel := s.View().Selection
		if sel.MarketType == nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("select a market first"))
		}
		if m, ok := models.LookupMarket(*sel.MarketType); ok && !m.Allows(req.Timeframe) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_TIMEFRAME", "timeframe",
				"timeframe not offered by "+m.Title, http.StatusBadRequest).
				WithParam("options", m.AllowedTimeframes))
		}
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *DashboardEchoHandler) SelectTab(c echo.Context) error {
	req := &models.SelectTabRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, sessionError(err))
	}
	s.SelectTab(models.Tab(req.Tab))
	return xhttp.SuccessResponse(c, s.View())
}

// Predict starts a prediction and answers with the loading state; the result arrives over /ws
// or by polling /prediction.
func (h *DashboardEchoHandler) Predict(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	if h.limiter != nil && !h.limiter.Allow(s.ID()) {
		wait := int(math.Ceil(h.limiter.RetryAfter(s.ID()).Seconds()))
		c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(wait))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many prediction requests"))
	}
	st, ok := s.Predict(context.WithoutCancel(c.Request().Context()))
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("select a market and ticker first"))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, PredictionView{State: st})
}

func (h *DashboardEchoHandler) Prediction(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	return xhttp.SuccessResponse(c, PredictionView{State: s.Prediction(), Rows: s.PredictionTable()})
}

func (h *DashboardEchoHandler) Chart(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	series, ok := s.Chart()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no chart for the current prediction"))
	}
	return xhttp.SuccessResponse(c, series)
}

func (h *DashboardEchoHandler) Tracking(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	view := s.View()
	out := TrackingView{State: view.Tracking, Polling: view.Polling}
	if rows, stats, ok := s.TrackingTable(); ok {
		out.Rows = rows
		out.Statistics = &stats
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardEchoHandler) RefreshTracking(c echo.Context) error {
	s, resp := h.session(c)
	if s == nil {
		return resp
	}
	if !s.RefreshTracking() {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("ERR_NOT_TRACKING",
			"tracking is not running or a refresh is in flight"))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, nil)
}

// session resolves :id. On failure it returns a nil session and the response already written.
func (h *DashboardEchoHandler) session(c echo.Context) (*usecase.Session, error) {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Get(req.ID)
	if err != nil {
		return nil, xhttp.AppErrorResponse(c, sessionError(err))
	}
	return s, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrTooManySessions):
		return xhttp.UnavailableError("ERR_TOO_MANY_SESSIONS", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRegistryShutdown):
		return xhttp.UnavailableError("ERR_SHUTTING_DOWN", err.Error()).WithError(err)
	default:
		return xhttp.InternalError("session lookup failed").WithError(err)
	}
}
