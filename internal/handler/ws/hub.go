package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/internal/render"
	"StockTime/internal/usecase"
	xhttp "StockTime/pkg/http"
	"StockTime/pkg/http/middleware"
	"StockTime/pkg/logger"
)

const sendBuffer = 256

// SessionSource resolves the session a socket attaches to.
type SessionSource interface {
	Get(id string) (*usecase.Session, error)
}

// Hub fans session frames out to every socket attached to that session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	sessions SessionSource
	metrics  drepo.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader
}

var _ render.Broadcaster = (*Hub)(nil)

type HubOption func(*Hub)

// WithAllowedOrigins accepts upgrades from browser pages on origins. Without it
// gorilla's same-host check applies. Requests with no Origin header are not browsers and pass.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(origins, origin)
		}
	}
}

func NewHub(log *logger.Logger, metrics drepo.Metrics, opts ...HubOption) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Hub{
		clients: make(map[string]map[*Client]struct{}),
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach sets the session lookup. The hub is built before the registry because sessions broadcast through it.
func (h *Hub) Attach(src SessionSource) {
	h.mu.Lock()
	h.sessions = src
	h.mu.Unlock()
}

// Broadcast queues frame for every client of sessionID. Slow clients lose frames instead of blocking.
func (h *Hub) Broadcast(sessionID string, frame models.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("ws: marshal frame", logger.String("type", frame.Type), logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- data:
		default:
			if h.metrics != nil {
				h.metrics.RecordError("ws_send_dropped")
			}
		}
	}
}

// ClientCount returns the number of sockets attached to sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// CloseSession disconnects every socket of a deleted session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[sessionID] {
		c.closed = true
		close(c.send)
	}
	delete(h.clients, sessionID)
}

// RegisterRoutes mounts GET /ws?session=<id>.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Handle)
}

func (h *Hub) Handle(c echo.Context) error {
	id := c.QueryParam("session")
	if id == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("session is required"))
	}
	h.mu.RLock()
	src := h.sessions
	h.mu.RUnlock()
	if src == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("sessions unavailable"))
	}
	sess, err := src.Get(id)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("session %s not found", id))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", logger.SessionID(id), logger.Error(err))
		return nil
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), hub: h, session: id}
	h.add(client)
	h.log.Debug("ws: client connected", logger.SessionID(id))

	snapshot, _ := json.Marshal(models.Frame{
		Type:      models.FrameSnapshot,
		SessionID: id,
		Payload:   sess.View(),
		Timestamp: time.Now().UTC(),
	})
	h.sendTo(client, snapshot)

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.session]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.session] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.session]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	c.closed = true
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
}
