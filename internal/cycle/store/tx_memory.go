package store

import (
	"context"
	"sync"
	"time"

	"revalidation/internal/cycle/ports"
	dErrors "revalidation/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// InMemoryTx gives the in-memory stores transactional semantics with a coarse
// lock and a checkpoint taken before fn runs. Every write to the stores must
// go through RunInTx; a rollback restores the whole checkpoint.
type InMemoryTx struct {
	mu      sync.Mutex
	cycles  *InMemory
	audits  *InMemoryAudit
	timeout time.Duration
}

func NewInMemoryTx(cycles *InMemory, audits *InMemoryAudit) *InMemoryTx {
	return &InMemoryTx{cycles: cycles, audits: audits}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	cycles := t.cycles.checkpoint()
	audits := t.audits.checkpoint()
	if err := fn(ctx, ports.Stores{Cycles: t.cycles, Audits: t.audits}); err != nil {
		t.cycles.restore(cycles)
		t.audits.restore(audits)
		return err
	}
	return nil
}
