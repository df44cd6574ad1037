package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry keeps one live session per identity.
type Registry struct {
	gw   Gateway
	opts []Option

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	sessions map[string]*Session
	lastUsed map[string]time.Time
	now      func() time.Time
}

func NewRegistry(gw Gateway, opts ...Option) *Registry {
	base, stop := context.WithCancel(context.Background())
	return &Registry{
		gw:       gw,
		opts:     opts,
		base:     base,
		stop:     stop,
		sessions: make(map[string]*Session),
		lastUsed: make(map[string]time.Time),
		now:      time.Now,
	}
}

// WithClock replaces the clock used to track idle sessions.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

// Get returns the identity's session, opening it on first use, and waits
// for its initial load.
func (r *Registry) Get(ctx context.Context, identity string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if !ok {
		s = Open(r.base, r.gw, identity, r.opts...)
		r.sessions[identity] = s
	}
	r.lastUsed[identity] = r.now()
	r.mu.Unlock()
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SignOut drops the identity's session. The next Get starts from scratch.
func (r *Registry) SignOut(identity string) bool {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	delete(r.sessions, identity)
	delete(r.lastUsed, identity)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// ReportWriteFailure surfaces a failed background write on the identity's
// session. It fits syncgw.WithWriteErrorHook.
func (r *Registry) ReportWriteFailure(identity string, err error) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	r.mu.Unlock()
	if !ok {
		slog.Warn("write failure for closed session", slog.String("identity", identity), slog.String("error", err.Error()))
		return
	}
	s.reportWriteFailure(err)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle closes sessions not fetched for longer than ttl and reports how
// many were dropped. Each open session holds a feed subscription.
func (r *Registry) EvictIdle(ttl time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-ttl)
	var idle []*Session
	for identity, used := range r.lastUsed {
		if used.Before(cutoff) {
			idle = append(idle, r.sessions[identity])
			delete(r.sessions, identity)
			delete(r.lastUsed, identity)
		}
	}
	r.mu.Unlock()
	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// RunEviction sweeps idle sessions every ttl/2 until ctx ends. A ttl of zero
// keeps sessions open until sign out.
func (r *Registry) RunEviction(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(ttl); n > 0 {
				slog.Debug("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.lastUsed = make(map[string]time.Time)
	r.mu.Unlock()
	r.stop()
	for _, s := range sessions {
		s.Close()
	}
}
