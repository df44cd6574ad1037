package feed

import (
	"context"
	"slices"
	"sync"
)

// MemoryFeed is an in-process Notifier, used when no redis is configured.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
	closed bool
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs: make(map[string]map[int]chan []byte),
	}
}

func (f *MemoryFeed) Publish(ctx context.Context, topic string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	for _, ch := range f.subs[topic] {
		offerLatest(ch, slices.Clone(doc))
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, topic string) (<-chan []byte, func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, nil, ErrFeedClosed
	}
	id := f.nextID
	f.nextID++
	ch := make(chan []byte, subscriberBuffer)
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[int]chan []byte)
	}
	f.subs[topic][id] = ch

	var once sync.Once
	done := make(chan struct{})
	stop := func() error {
		once.Do(func() {
			close(done)
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[topic][id]; !ok {
				return
			}
			delete(f.subs[topic], id)
			if len(f.subs[topic]) == 0 {
				delete(f.subs, topic)
			}
			close(ch)
		})
		return nil
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return ch, stop, nil
}

// Subscribers reports how many live subscriptions topic has.
func (f *MemoryFeed) Subscribers(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[topic])
}

// Close ends every subscription.
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for topic, subs := range f.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(f.subs, topic)
	}
	return nil
}
