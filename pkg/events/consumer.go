package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Reader is the subset of kafka.Reader the tailer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Tail decodes events from r until ctx is cancelled or fn returns an error.
func Tail(ctx context.Context, r Reader, fn func(Event) error) error {
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to read event: %w", err)
		}
		var e Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			return fmt.Errorf("failed to decode event at offset %d: %w", m.Offset, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
