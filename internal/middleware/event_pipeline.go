package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockTime/internal/domain/models"
	domrepo "StockTime/internal/domain/repository"
	"StockTime/pkg/logger"
)

var ErrPipelineFull = errors.New("event pipeline buffer full")

const maxThrottleKeys = 10000

// EventPipeline sits between dashboard sessions and the event publisher.
// It validates, throttles per session and kind, and buffers so that callers never block on the sink.
type EventPipeline struct {
	sink     domrepo.EventPublisher
	metrics  domrepo.Metrics
	log      *logger.Logger
	maxRPS   int
	bufSize  int
	bufCh    chan *models.DashboardEvent
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per session+kind last accepted time
}

type PipelineOption func(*EventPipeline)

// WithMaxRPS sets the max events per second per session and kind.
func WithMaxRPS(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets how many events may wait for the sink.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *EventPipeline) { p.log = l }
}

func NewEventPipeline(sink domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		sink:     sink,
		metrics:  metrics,
		log:      logger.NewNop(),
		maxRPS:   20,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.DashboardEvent, p.bufSize)
	return p
}

// Start launches the goroutine that drains the buffer into the sink.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				p.drain(ctx)
				return
			case ev := <-p.bufCh:
				err := p.sink.PublishEvent(ctx, ev)
				p.recordEvent(ev.Kind, err)
				if err == nil {
					backoff = 50 * time.Millisecond
					continue
				}
				p.log.Warn("event publish failed", logger.String("kind", ev.Kind), logger.Error(err))
				if backoff < 2*time.Second {
					backoff *= 2
				}
				select {
				case <-p.stopCh:
					p.drain(ctx)
					return
				case <-time.After(backoff):
				}
				// requeue if space; drop otherwise
				select {
				case p.bufCh <- ev:
				default:
					p.recordError("pipeline_buffer_drop")
				}
			}
		}
	}()
}

// Stop flushes what is buffered with one attempt per event and stops the drain goroutine.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Submit validates and throttles ev, then queues it for publishing.
func (p *EventPipeline) Submit(_ context.Context, ev *models.DashboardEvent) error {
	if err := validateEvent(ev); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	if !p.allow(ev.SessionID+"|"+ev.Kind, time.Now()) {
		p.recordError("pipeline_throttle")
		return nil
	}
	select {
	case p.bufCh <- ev:
		return nil
	default:
		p.recordError("pipeline_buffer_full")
		return ErrPipelineFull
	}
}

// Len is the number of events waiting for the sink.
func (p *EventPipeline) Len() int { return len(p.bufCh) }

func (p *EventPipeline) drain(ctx context.Context) {
	for {
		select {
		case ev := <-p.bufCh:
			p.recordEvent(ev.Kind, p.sink.PublishEvent(ctx, ev))
		default:
			return
		}
	}
}

func validateEvent(ev *models.DashboardEvent) error {
	if ev == nil {
		return fmt.Errorf("event nil")
	}
	if ev.SessionID == "" {
		return fmt.Errorf("session id empty")
	}
	if ev.Kind == "" {
		return fmt.Errorf("kind empty")
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	return nil
}

// allow keeps at most maxRPS events per second for key.
func (p *EventPipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[key]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	if len(p.lastSeen) > maxThrottleKeys {
		for k, t := range p.lastSeen {
			if now.Sub(t) > time.Second {
				delete(p.lastSeen, k)
			}
		}
	}
	return true
}

func (p *EventPipeline) recordEvent(kind string, err error) {
	if p.metrics != nil {
		p.metrics.RecordEvent(kind, err)
	}
}

func (p *EventPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
