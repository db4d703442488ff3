package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revalidation/internal/platform/kafka"
	"revalidation/internal/platform/metrics"
)

type recordingPublisher struct {
	mu    sync.Mutex
	sent  []kafka.Message
	fails int
}

func (p *recordingPublisher) Publish(_ context.Context, msgs []kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWorker_ProcessOnce(t *testing.T) {
	store := NewMemoryStore()
	e := store.Add("cycle", "cycle-1", "cycle.submitted", []byte(`{"cycle_id":"cycle-1"}`))
	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())

	n, err := NewWorker(store, pub, discard, m, time.Second, 10).ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, []byte("cycle-1"), msg.Key)
	assert.Equal(t, e.ID.String(), msg.Headers["event_id"])
	assert.Equal(t, "cycle.submitted", msg.Headers["event_type"])
	assert.InDelta(t, 1, promtest.ToFloat64(m.OutboxPublished), 0)

	pending, _ := store.Pending(context.Background())
	assert.Zero(t, pending)
}

func TestWorker_FailedBatchStaysPending(t *testing.T) {
	store := NewMemoryStore()
	store.Add("cycle", "cycle-1", "cycle.submitted", []byte(`{}`))
	pub := &recordingPublisher{fails: 1}
	w := NewWorker(store, pub, discard, nil, time.Second, 10)

	_, err := w.ProcessOnce(context.Background())
	require.Error(t, err)
	pending, _ := store.Pending(context.Background())
	assert.Equal(t, 1, pending)

	n, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, pub.count())
}

func TestWorker_RunDrainsBacklogInBatches(t *testing.T) {
	store := NewMemoryStore()
	for range 5 {
		store.Add("cycle", "c", "cycle.submitted", []byte(`{}`))
	}
	pub := &recordingPublisher{}
	w := NewWorker(store, pub, discard, nil, time.Hour, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
