// Package syncgw keeps one remote document per identity in step with local
// state. Writes are whole-document overwrites, so the last writer wins.
package syncgw

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/feed"
	"github.com/limbo/habitsync/internal/repository"
	"github.com/limbo/habitsync/pkg/entity"
)

const (
	DefaultAppID        = "habitsync"
	defaultWriteTimeout = 10 * time.Second
)

type Option func(*Gateway)

func WithAppID(appID string) Option {
	return func(g *Gateway) {
		if appID != "" {
			g.appID = appID
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithWriteQueue switches between one serialized, coalescing writer per
// identity (on) and a goroutine per write (off).
func WithWriteQueue(on bool) Option {
	return func(g *Gateway) {
		g.queue = on
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.writeTimeout = d
	}
}

// WithWriteErrorHook is called after a failed background write.
func WithWriteErrorHook(f func(identity string, err error)) Option {
	return func(g *Gateway) {
		g.onWriteError = f
	}
}

type Gateway struct {
	docs  repository.DocumentsRepositoryI
	feed  feed.Notifier
	appID string

	logger       *slog.Logger
	now          func() time.Time
	queue        bool
	writeTimeout time.Duration
	onWriteError func(identity string, err error)

	mu       sync.Mutex
	closed   bool
	writers  map[string]*writer
	inflight int
	idle     chan struct{}
}

type writer struct {
	pending []byte
	running bool
}

func New(docs repository.DocumentsRepositoryI, notifier feed.Notifier, opts ...Option) *Gateway {
	g := &Gateway{
		docs:         docs,
		feed:         notifier,
		appID:        DefaultAppID,
		logger:       slog.Default(),
		now:          time.Now,
		queue:        true,
		writeTimeout: defaultWriteTimeout,
		writers:      make(map[string]*writer),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) path(identity string) string {
	return repository.DocumentPath(g.appID, identity)
}

// InitializeIfAbsent returns the identity's stored snapshot, creating the
// document from the seed set when none exists yet.
func (g *Gateway) InitializeIfAbsent(ctx context.Context, identity string) (entity.Snapshot, error) {
	if identity == "" {
		return entity.Snapshot{}, errorvalues.ErrNoIdentity
	}
	path := g.path(identity)
	s, err := g.read(ctx, path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errorvalues.ErrDocumentNotFound) {
		g.logger.Error("sync read failure", slog.String("identity", identity), slog.String("error", err.Error()))
		return entity.Snapshot{}, err
	}

	seed := entity.DefaultSnapshot()
	seed.LastUpdated = g.now()
	body, err := entity.EncodeDocument(seed)
	if err != nil {
		return entity.Snapshot{}, err
	}
	created, err := g.docs.CreateIfAbsent(ctx, path, body)
	if err != nil {
		g.logger.Error("sync write failure", slog.String("identity", identity), slog.String("error", err.Error()))
		return entity.Snapshot{}, err
	}
	if created {
		g.logger.Debug("seeded habits document", slog.String("identity", identity))
		return seed, nil
	}
	// lost the race to another writer, theirs is the document now
	return g.read(ctx, path)
}

func (g *Gateway) read(ctx context.Context, path string) (entity.Snapshot, error) {
	body, err := g.docs.Get(ctx, path)
	if err != nil {
		return entity.Snapshot{}, err
	}
	return entity.DecodeDocument(body)
}

// Subscribe delivers the current document first, then every later change
// until ctx is done. Undecodable pushes are logged and skipped.
func (g *Gateway) Subscribe(ctx context.Context, identity string) (<-chan entity.Snapshot, error) {
	if identity == "" {
		return nil, errorvalues.ErrNoIdentity
	}
	if g.isClosed() {
		return nil, errorvalues.ErrGatewayClosed
	}
	path := g.path(identity)
	// subscribe before reading so a write landing in between is not lost
	pushes, stop, err := g.feed.Subscribe(ctx, path)
	if err != nil {
		g.logger.Error("sync read failure", slog.String("identity", identity), slog.String("error", err.Error()))
		return nil, err
	}
	current, err := g.read(ctx, path)
	hasCurrent := err == nil
	if err != nil && !errors.Is(err, errorvalues.ErrDocumentNotFound) {
		stop()
		g.logger.Error("sync read failure", slog.String("identity", identity), slog.String("error", err.Error()))
		return nil, err
	}

	out := make(chan entity.Snapshot, 1)
	go func() {
		defer close(out)
		defer stop()
		if hasCurrent {
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
		for {
			select {
			case body, ok := <-pushes:
				if !ok {
					return
				}
				s, err := entity.DecodeDocument(body)
				if err != nil {
					g.logger.Warn("skipping undecodable push", slog.String("identity", identity), slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Persist overwrites the identity's document with snap in the background.
// Failures never reach the caller, they are logged and passed to the write
// error hook. A zero LastUpdated is stamped with the current time.
func (g *Gateway) Persist(identity string, snap entity.Snapshot) {
	if identity == "" {
		return
	}
	if snap.LastUpdated.IsZero() {
		snap.LastUpdated = g.now()
	}
	body, err := entity.EncodeDocument(snap)
	if err != nil {
		g.reportWriteError(identity, err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		g.logger.Warn("dropping write after close", slog.String("identity", identity))
		return
	}
	if !g.queue {
		g.startLocked()
		go func() {
			defer g.doneOne()
			g.write(identity, body)
		}()
		return
	}
	w := g.writers[identity]
	if w == nil {
		w = &writer{}
		g.writers[identity] = w
	}
	// a newer snapshot supersedes one that has not been written yet
	w.pending = body
	if w.running {
		return
	}
	w.running = true
	g.startLocked()
	go g.drain(identity, w)
}

func (g *Gateway) drain(identity string, w *writer) {
	defer g.doneOne()
	for {
		g.mu.Lock()
		body := w.pending
		w.pending = nil
		if body == nil {
			w.running = false
			delete(g.writers, identity)
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()
		g.write(identity, body)
	}
}

func (g *Gateway) write(identity string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), g.writeTimeout)
	defer cancel()
	path := g.path(identity)
	if err := g.docs.Put(ctx, path, body); err != nil {
		g.reportWriteError(identity, err)
		return
	}
	if err := g.feed.Publish(ctx, path, body); err != nil {
		g.logger.Warn("publishing change failed", slog.String("identity", identity), slog.String("error", err.Error()))
	}
}

func (g *Gateway) reportWriteError(identity string, err error) {
	g.logger.Error("sync write failure", slog.String("identity", identity), slog.String("error", err.Error()))
	if g.onWriteError != nil {
		g.onWriteError(identity, err)
	}
}

func (g *Gateway) startLocked() {
	if g.inflight == 0 {
		g.idle = make(chan struct{})
	}
	g.inflight++
}

func (g *Gateway) doneOne() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight--
	if g.inflight == 0 {
		close(g.idle)
	}
}

// Flush waits until every accepted write has finished.
func (g *Gateway) Flush(ctx context.Context) error {
	g.mu.Lock()
	if g.inflight == 0 {
		g.mu.Unlock()
		return nil
	}
	idle := g.idle
	g.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExportLocalCopy renders snap as the downloadable backup file body.
func (g *Gateway) ExportLocalCopy(snap entity.Snapshot) ([]byte, error) {
	return entity.EncodeExport(snap)
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Close stops accepting writes and waits for the pending ones.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return g.Flush(ctx)
}
