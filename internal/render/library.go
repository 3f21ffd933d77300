package render

import (
	"context"
	"sync"
	"sync/atomic"
)

// Library is a process-wide, lazily loaded chart factory. The first Get starts
// the load; every caller waits on the same result. It is never torn down.
type Library struct {
	load    func(context.Context) (ChartFactory, error)
	once    sync.Once
	done    chan struct{}
	factory ChartFactory
	err     error
	refs    atomic.Int64
}

func NewLibrary(load func(context.Context) (ChartFactory, error)) *Library {
	return &Library{load: load, done: make(chan struct{})}
}

// Static wraps an already available factory.
func Static(f ChartFactory) *Library {
	return NewLibrary(func(context.Context) (ChartFactory, error) { return f, nil })
}

// Get returns the factory, waiting for the first load if needed.
func (l *Library) Get(ctx context.Context) (ChartFactory, error) {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			l.factory, l.err = l.load(context.Background())
		}()
	})
	select {
	case <-l.done:
		return l.factory, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Acquire counts a holder of the library. The returned func releases it.
func (l *Library) Acquire() func() {
	l.refs.Add(1)
	var once sync.Once
	return func() { once.Do(func() { l.refs.Add(-1) }) }
}

// Refs is the number of current holders.
func (l *Library) Refs() int64 { return l.refs.Load() }
