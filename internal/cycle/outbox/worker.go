package outbox

import (
	"context"
	"log/slog"
	"time"

	"revalidation/internal/platform/metrics"
)

// Worker drains the outbox on a fixed interval.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, publisher Publisher, logger *slog.Logger, m *metrics.Metrics, interval time.Duration, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// another pass so a backlog drains without waiting for the ticker.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := w.ProcessOnce(ctx)
			if err != nil || n < w.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce publishes at most one batch and reports how many entries
// were published. Failed batches stay pending for the next pass.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	n, err := w.store.Claim(ctx, w.batchSize, func(ctx context.Context, batch []Entry) error {
		w.metrics.SetOutboxBatch(len(batch))
		return w.publisher.Publish(ctx, toMessages(batch))
	})
	if err != nil {
		if ctx.Err() == nil {
			w.metrics.IncOutboxFailed()
			w.logger.WarnContext(ctx, "outbox publish failed", "error", err)
		}
		return 0, err
	}
	if n > 0 {
		w.metrics.IncOutboxPublished(n)
		w.logger.DebugContext(ctx, "outbox batch published", "count", n)
	}
	return n, nil
}
