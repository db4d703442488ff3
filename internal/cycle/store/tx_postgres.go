package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"revalidation/internal/cycle/ports"
	dErrors "revalidation/pkg/domain-errors"
	txcontext "revalidation/pkg/platform/tx"
)

// PostgresTx runs fn inside a database transaction and hands it stores that
// write through that transaction.
type PostgresTx struct {
	db      *sql.DB
	cycles  *PostgresStore
	audits  *PostgresAudit
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB, cycles *PostgresStore, audits *PostgresAudit) *PostgresTx {
	return &PostgresTx{db: db, cycles: cycles, audits: audits, timeout: defaultTxTimeout}
}

// WithTimeout overrides the deadline applied when the caller's context has none.
func (p *PostgresTx) WithTimeout(d time.Duration) *PostgresTx {
	if d > 0 {
		p.timeout = d
	}
	return p
}

func (p *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	txCtx := txcontext.WithTx(ctx, tx)
	if err := fn(txCtx, ports.Stores{Cycles: p.cycles, Audits: p.audits}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
