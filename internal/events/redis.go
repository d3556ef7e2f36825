package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(opts *redis.Options, channel string) *RedisPublisher {
	if channel == "" {
		channel = TopicOrderDelivered
	}
	return &RedisPublisher{client: redis.NewClient(opts), channel: channel}
}

func (r *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := env.marshal()
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
