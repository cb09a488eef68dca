package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "draftio:changes"

// RedisBroadcaster relays change events across server instances over Redis
// pub/sub. A store publishes every local write; each instance's Run loop
// feeds received events back into its in-process hub.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

// NewRedisBroadcaster connects to Redis using a redis:// URL.
func NewRedisBroadcaster(redisURL string) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBroadcaster{client: client, channel: defaultChannel}, nil
}

// NewRedisBroadcasterWithClient wraps an existing Redis client.
func NewRedisBroadcasterWithClient(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: defaultChannel}
}

// Publish sends a change event to all subscribed instances, including the
// publishing one.
func (b *RedisBroadcaster) Publish(ctx context.Context, event string) error {
	if err := b.client.Publish(ctx, b.channel, event).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Run subscribes to the change channel and invokes deliver for every event
// until ctx is cancelled.
func (b *RedisBroadcaster) Run(ctx context.Context, deliver func(event string)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Force the subscription to be established before returning control to
	// the event loop, so writes that follow Run are never missed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to change channel: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver(msg.Payload)
		}
	}
}

// Close closes the underlying Redis connection.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
