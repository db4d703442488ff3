// Package outbox publishes submission events written by the audit store.
//
// The audit store inserts one outbox row in the same transaction as each
// submission audit record. The worker claims unpublished rows, produces them
// to Kafka and marks them published. Delivery is at-least-once: a crash
// between produce and mark republishes the batch, so consumers dedupe on the
// event_id header.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"revalidation/internal/platform/kafka"
)

// Entry is one outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store claims batches of unpublished entries. Claim holds the batch for
// the duration of fn and marks it published only when fn returns nil.
type Store interface {
	Claim(ctx context.Context, limit int, fn func(ctx context.Context, batch []Entry) error) (int, error)
}

// Publisher sends a batch to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

func toMessages(batch []Entry) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, e := range batch {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: map[string]string{
				"event_id":       e.ID.String(),
				"event_type":     e.EventType,
				"aggregate_type": e.AggregateType,
			},
		})
	}
	return msgs
}
