package realtime

import (
	"context"
	"errors"
	"fmt"

	"ctfplatform/pkg/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisChannel carries events over Redis pub/sub. Every subscribed node
// receives every event.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel wraps an existing client; Close does not close it.
func NewRedisChannel(client *redis.Client) (*RedisChannel, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &RedisChannel{client: client}, nil
}

// Publish encodes event and PUBLISHes it on channel.
func (r *RedisChannel) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed; delivery continues
// in the background until ctx is done.
func (r *RedisChannel) Subscribe(ctx context.Context, channel string, handler PayloadHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	go func() {
		defer ps.Close()
		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					logger.Warn(ctx, "redis subscription closed", zap.String("channel", channel))
					return
				}
				handler(ctx, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisChannel) Close() error {
	return nil
}
