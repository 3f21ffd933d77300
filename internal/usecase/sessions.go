package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockTime/pkg/logger"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrRegistryShutdown = errors.New("session registry closed")
)

// SessionRegistry keeps dashboard sessions by id and evicts idle ones.
type SessionRegistry struct {
	deps        SessionDeps
	maxSessions int
	idleTTL     time.Duration
	log         *logger.Logger
	onClose     func(id string)

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

type RegistryOption func(*SessionRegistry)

// WithMaxSessions caps the number of concurrent sessions; 0 means unlimited.
func WithMaxSessions(n int) RegistryOption {
	return func(r *SessionRegistry) { r.maxSessions = n }
}

// WithOnClose registers a hook run after a session is deleted, evicted or shut down.
func WithOnClose(fn func(id string)) RegistryOption {
	return func(r *SessionRegistry) { r.onClose = fn }
}

// WithIdleTTL sets how long a session may go untouched before eviction.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func NewSessionRegistry(deps SessionDeps, opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		deps:     deps,
		idleTTL:  30 * time.Minute,
		log:      deps.Log,
		sessions: make(map[string]*Session),
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session with a fresh id.
func (r *SessionRegistry) Create() (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryShutdown
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s := NewSession(uuid.NewString(), r.deps)
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.recordActive(n)
	r.log.Info("session created", logger.SessionID(s.ID()), logger.Int("active", n))
	return s, nil
}

// Get looks up a session by id.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete closes and removes a session.
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	r.closeSession(s)
	r.recordActive(n)
	return nil
}

// Len is the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns views of the live sessions ordered by id.
func (r *SessionRegistry) List() []SessionView {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	views := make([]SessionView, 0, len(all))
	for _, s := range all {
		views = append(views, s.View())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// EvictIdle closes sessions untouched since before now-idleTTL and returns how many went.
func (r *SessionRegistry) EvictIdle(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)
	var victims []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			victims = append(victims, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range victims {
		r.closeSession(s)
		r.log.Info("session evicted", logger.SessionID(s.ID()))
	}
	if len(victims) > 0 {
		r.recordActive(n)
	}
	return len(victims)
}

// Run evicts idle sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.EvictIdle(now)
		}
	}
}

// Close shuts every session down.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			r.closeSession(s)
		}(s)
	}
	wg.Wait()
	r.recordActive(0)
}

func (r *SessionRegistry) closeSession(s *Session) {
	s.Close()
	if r.onClose != nil {
		r.onClose(s.ID())
	}
}

func (r *SessionRegistry) recordActive(n int) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordActiveSessions(n)
	}
}
