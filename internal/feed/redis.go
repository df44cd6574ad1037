package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFeed publishes bodies on redis pub/sub, one channel per topic.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

// NewRedisFeed connects to redisURL and checks the connection.
func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisFeedWithClient(client), nil
}

func NewRedisFeedWithClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		prefix: "habits:",
	}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, doc []byte) error {
	if err := f.client.Publish(ctx, f.channel(topic), doc).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (<-chan []byte, func() error, error) {
	ps := f.client.Subscribe(ctx, f.channel(topic))
	// wait for the confirmation so nothing published after we return is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	var (
		once     sync.Once
		closeErr error
	)
	stop := func() error {
		once.Do(func() {
			closeErr = ps.Close()
		})
		return closeErr
	}

	out := make(chan []byte, subscriberBuffer)
	in := ps.Channel()
	go func() {
		defer close(out)
		defer stop()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				offerLatest(out, []byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, stop, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
