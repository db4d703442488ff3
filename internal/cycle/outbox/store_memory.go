package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process outbox for tests and single-node development.
type MemoryStore struct {
	mu        sync.Mutex
	entries   []Entry
	published map[uuid.UUID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{published: make(map[uuid.UUID]bool)}
}

func (s *MemoryStore) Add(aggregateType, aggregateID, eventType string, payload []byte) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
	s.entries = append(s.entries, e)
	return e
}

// Claim holds the store lock for the whole call, which serializes workers.
func (s *MemoryStore) Claim(ctx context.Context, limit int, fn func(ctx context.Context, batch []Entry) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []Entry
	for _, e := range s.entries {
		if len(batch) == limit {
			break
		}
		if !s.published[e.ID] {
			batch = append(batch, e)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	for _, e := range batch {
		s.published[e.ID] = true
	}
	return len(batch), nil
}

func (s *MemoryStore) Pending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) - len(s.published), nil
}
