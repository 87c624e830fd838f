package notifier

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventStream is the publishing side of a Redis stream. Satisfied by
// redis.Stream.
type EventStream interface {
	Publish(ctx context.Context, stream string, values map[string]any) error
}

const defaultStreamKey = "anchor:transaction_events"

// StreamSink appends every event to a Redis stream for internal consumers.
type StreamSink struct {
	stream EventStream
	key    string
}

func NewStreamSink(stream EventStream, key string) *StreamSink {
	if key == "" {
		key = defaultStreamKey
	}
	return &StreamSink{stream: stream, key: key}
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Notify(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.stream.Publish(ctx, s.key, map[string]any{
		"transaction_id": event.TransactionID,
		"kind":           event.Kind,
		"status":         event.Status,
		"payload":        string(payload),
	})
}
