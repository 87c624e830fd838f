package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Stream wraps a Redis Streams connection for publishing transaction events
// to downstream consumers (compliance, reporting, customer notification).
type Stream struct {
	client *redis.Client
}

func NewStream(url string) (*Stream, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Stream{client: client}, nil
}

// Publish appends values to the named stream with an auto-generated ID.
func (s *Stream) Publish(ctx context.Context, stream string, values map[string]any) error {
	if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func (s *Stream) Close() error {
	return s.client.Close()
}

func (s *Stream) Client() *redis.Client {
	return s.client
}
