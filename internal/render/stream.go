package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockTime/internal/domain/models"
)

// Broadcaster delivers frames to the clients of one session.
type Broadcaster interface {
	Broadcast(sessionID string, frame models.Frame)
}

// Chart operations carried in chart frames.
const (
	OpCreate    = "create"
	OpAddSeries = "addSeries"
	OpSetData   = "setData"
	OpFit       = "fitContent"
	OpRemove    = "remove"
)

// ChartCommand is the payload of a chart frame. The browser replays it against lightweight-charts.
type ChartCommand struct {
	Op       string         `json:"op"`
	ChartID  string         `json:"chartId"`
	SeriesID string         `json:"seriesId,omitempty"`
	Kind     SeriesKind     `json:"kind,omitempty"`
	Chart    *ChartOptions  `json:"chart,omitempty"`
	Series   *SeriesOptions `json:"series,omitempty"`
	Points   []Point        `json:"points,omitempty"`
}

// StreamFactory creates charts whose calls are streamed as frames; the container is the session id.
type StreamFactory struct {
	out Broadcaster
}

func NewStreamFactory(out Broadcaster) *StreamFactory {
	return &StreamFactory{out: out}
}

func (f *StreamFactory) CreateChart(_ context.Context, container string, opts ChartOptions) (Chart, error) {
	if container == "" {
		return nil, fmt.Errorf("container required")
	}
	c := &streamChart{out: f.out, session: container, id: uuid.NewString()}
	c.send(ChartCommand{Op: OpCreate, Chart: &opts})
	return c, nil
}

type streamChart struct {
	out     Broadcaster
	session string
	id      string
	mu      sync.Mutex
	series  int
	removed bool
}

func (c *streamChart) AddCandlestickSeries(opts SeriesOptions) Series {
	return c.addSeries(SeriesCandlestick, opts)
}

func (c *streamChart) AddLineSeries(opts SeriesOptions) Series {
	return c.addSeries(SeriesLine, opts)
}

func (c *streamChart) FitContent() { c.send(ChartCommand{Op: OpFit}) }

func (c *streamChart) Remove() {
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return
	}
	c.removed = true
	c.mu.Unlock()
	c.out.Broadcast(c.session, c.frame(ChartCommand{Op: OpRemove}))
}

func (c *streamChart) addSeries(kind SeriesKind, opts SeriesOptions) Series {
	c.mu.Lock()
	c.series++
	id := fmt.Sprintf("%s-%d", kind, c.series)
	c.mu.Unlock()
	c.send(ChartCommand{Op: OpAddSeries, SeriesID: id, Kind: kind, Series: &opts})
	return &streamSeries{chart: c, id: id}
}

// send drops commands issued after Remove.
func (c *streamChart) send(cmd ChartCommand) {
	c.mu.Lock()
	removed := c.removed
	c.mu.Unlock()
	if removed {
		return
	}
	c.out.Broadcast(c.session, c.frame(cmd))
}

func (c *streamChart) frame(cmd ChartCommand) models.Frame {
	cmd.ChartID = c.id
	return models.Frame{Type: models.FrameChart, SessionID: c.session, Payload: cmd, Timestamp: time.Now().UTC()}
}

type streamSeries struct {
	chart *streamChart
	id    string
}

func (s *streamSeries) SetData(points []Point) {
	s.chart.send(ChartCommand{Op: OpSetData, SeriesID: s.id, Points: points})
}

var _ ChartFactory = (*StreamFactory)(nil)
