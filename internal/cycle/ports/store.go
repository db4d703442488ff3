package ports

import (
	"context"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
)

// CycleStore is the single gateway to persisted cycle records. Implementations
// report facts with pkg/platform/sentinel errors:
//   - ErrNotFound for a missing cycle (or missing archive)
//   - ErrConflict when a uniqueness rule rejects Create
//   - ErrInvalidState when CompleteIfActive targets a non-active cycle
type CycleStore interface {
	// Create persists a new cycle and assigns cycle.ID. It must reject a
	// second active cycle or a duplicate cycle number for the subject.
	Create(ctx context.Context, cycle *models.Cycle) error
	FindByID(ctx context.Context, cycleID id.CycleID) (*models.Cycle, error)
	// FindCurrent returns the subject's single active cycle.
	FindCurrent(ctx context.Context, subjectID id.SubjectID) (*models.Cycle, error)
	// FindLast returns the most recently created cycle regardless of status.
	FindLast(ctx context.Context, subjectID id.SubjectID) (*models.Cycle, error)
	// ListBySubject returns every cycle for the subject in cycle-number order.
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Cycle, error)
	// CompleteIfActive applies the completion only while the cycle is still
	// active. Concurrent callers are serialized; exactly one succeeds.
	CompleteIfActive(ctx context.Context, cycleID id.CycleID, completion models.Completion) (*models.Cycle, error)
	// FindArchivedSnapshot returns the archived snapshot of a completed cycle.
	FindArchivedSnapshot(ctx context.Context, cycleID id.CycleID) (*models.Snapshot, error)
	// ListCompleted returns every cycle that has passed through completion.
	ListCompleted(ctx context.Context) ([]*models.Cycle, error)
}

// AuditStore persists submission audit records. It is append-only: no update
// or delete exists. Append rejects a second record for the same cycle with
// sentinel.ErrConflict.
type AuditStore interface {
	Append(ctx context.Context, record *models.SubmissionAudit) error
	ExistsForCycle(ctx context.Context, cycleID id.CycleID) (bool, error)
}

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks CycleStore,AuditStore,Tx

// Stores is the set of stores bound to one transaction.
type Stores struct {
	Cycles CycleStore
	Audits AuditStore
}

// Tx runs fn atomically: either every write made through stores commits or
// none does. ctx passed to fn carries the transaction.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
