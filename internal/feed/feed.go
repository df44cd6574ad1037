// Package feed pushes changed documents to everyone watching the same path.
package feed

import (
	"context"
	"errors"
)

var ErrFeedClosed = errors.New("feed is closed")

// Notifier fans document bodies out to subscribers of a topic. Delivery is
// best effort: a subscriber that falls behind only needs the newest body.
type Notifier interface {
	Publish(ctx context.Context, topic string, doc []byte) error
	// Subscribe returns a channel of bodies published after the call returns
	// and a func that stops the subscription. The channel is closed once
	// stopped or when ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func() error, error)
	Close() error
}

// subscriberBuffer bounds how many pending bodies a slow subscriber keeps.
const subscriberBuffer = 8

// offerLatest hands doc to ch, evicting the oldest pending body when ch is full.
func offerLatest(ch chan []byte, doc []byte) {
	for {
		select {
		case ch <- doc:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
