// Package session binds one identity's tracker to the sync gateway: it loads
// the remote document, applies remote pushes and persists local mutations.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/limbo/habitsync/internal/tracker"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
)

// Gateway is the part of syncgw.Gateway a session needs.
type Gateway interface {
	InitializeIfAbsent(ctx context.Context, identity string) (entity.Snapshot, error)
	Subscribe(ctx context.Context, identity string) (<-chan entity.Snapshot, error)
	Persist(identity string, snap entity.Snapshot)
	ExportLocalCopy(snap entity.Snapshot) ([]byte, error)
}

const (
	NoticeReadFailure  = "Could not load your saved habits, showing defaults."
	NoticeWriteFailure = "Your latest change was not saved."
)

// maxPending bounds the stamps kept for echo matching.
const maxPending = 64

type Option func(*Session)

func WithKeys(keys *datekey.Normalizer) Option {
	return func(s *Session) {
		if keys != nil {
			s.keys = keys
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

type Session struct {
	identity string
	gw       Gateway
	keys     *datekey.Normalizer
	logger   *slog.Logger
	now      func() time.Time
	tracker  *tracker.Tracker

	mu       sync.Mutex
	loading  bool
	notice   string
	pending  []time.Time

	ready  chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// Open starts a session. An empty identity means local-only: seed data, no
// remote calls. Otherwise loading continues in the background until Ready
// is closed.
func Open(ctx context.Context, gw Gateway, identity string, opts ...Option) *Session {
	s := &Session{
		identity: identity,
		gw:       gw,
		keys:     datekey.UTC(),
		logger:   slog.Default(),
		now:      time.Now,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(slog.String("identity", identity))
	s.tracker = tracker.New(s.keys, entity.DefaultSnapshot())

	ctx, s.cancel = context.WithCancel(ctx)
	if identity == "" || gw == nil {
		close(s.ready)
		close(s.done)
		return s
	}
	s.loading = true
	go s.run(ctx)
	return s
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	snap, err := s.gw.InitializeIfAbsent(ctx, s.identity)
	if err != nil {
		s.logger.Error("loading habits failed, using defaults", slog.String("error", err.Error()))
		s.tracker.Replace(entity.DefaultSnapshot())
		s.finishLoading(ctx, NoticeReadFailure)
		return
	}
	s.tracker.Replace(snap)

	pushes, err := s.gw.Subscribe(ctx, s.identity)
	if err != nil {
		s.logger.Error("subscribing to habits failed, using defaults", slog.String("error", err.Error()))
		s.tracker.Replace(entity.DefaultSnapshot())
		s.finishLoading(ctx, NoticeReadFailure)
		return
	}
	s.finishLoading(ctx, "")

	for remote := range pushes {
		s.apply(remote)
	}
}

func (s *Session) finishLoading(ctx context.Context, notice string) {
	if ctx.Err() == nil {
		s.tracker.SetPersist(s.persist)
	}
	s.mu.Lock()
	s.loading = false
	if notice != "" {
		s.notice = notice
	}
	s.mu.Unlock()
	close(s.ready)
}

// apply replaces local state with a pushed snapshot, the last one to land
// wins. The only pushes skipped are echoes of our own writes that a later
// write of ours has already replaced; they are matched by exact stamp.
func (s *Session) apply(remote entity.Snapshot) {
	s.mu.Lock()
	superseded := false
	for i := len(s.pending) - 1; i >= 0; i-- {
		if s.pending[i].Equal(remote.LastUpdated) {
			superseded = i < len(s.pending)-1
			s.pending = s.pending[i+1:]
			break
		}
	}
	s.mu.Unlock()
	if superseded {
		s.logger.Debug("skipping superseded echo", slog.Time("last_updated", remote.LastUpdated))
		return
	}
	s.tracker.Replace(remote)
}

// persist runs under the tracker lock, it only stamps and hands off.
func (s *Session) persist(snap entity.Snapshot) {
	snap.LastUpdated = s.now()
	s.mu.Lock()
	s.pending = append(s.pending, snap.LastUpdated)
	if len(s.pending) > maxPending {
		s.pending = s.pending[len(s.pending)-maxPending:]
	}
	s.mu.Unlock()
	s.gw.Persist(s.identity, snap)
}

func (s *Session) Identity() string {
	return s.identity
}

// LocalOnly reports whether the session never talks to the gateway.
func (s *Session) LocalOnly() bool {
	return s.identity == "" || s.gw == nil
}

func (s *Session) Tracker() *tracker.Tracker {
	return s.tracker
}

func (s *Session) Keys() *datekey.Normalizer {
	return s.keys
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Notice is the latest passive sync notice, empty when all is well.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}

func (s *Session) reportWriteFailure(err error) {
	s.logger.Debug("surfacing write failure", slog.String("error", err.Error()))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = NoticeWriteFailure
}

func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until loading finished or ctx is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export serializes the current state as the backup file body.
func (s *Session) Export() ([]byte, error) {
	if s.gw == nil {
		return entity.EncodeExport(s.tracker.Snapshot())
	}
	return s.gw.ExportLocalCopy(s.tracker.Snapshot())
}

// Close detaches the session from the gateway and waits for its loop to end.
// Writes already handed to the gateway still complete.
func (s *Session) Close() {
	s.cancel()
	<-s.done
	s.tracker.SetPersist(nil)
}
