package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/platform/sentinel"
)

const (
	transitionInitialize = "initialize"
	transitionComplete   = "complete"
	transitionStartNext  = "start_next"
	transitionRenew      = "complete_and_renew"
)

// Renewal is the outcome of completing a cycle and opening its successor in
// one transaction.
type Renewal struct {
	Snapshot *models.Snapshot
	Next     *models.Cycle
}

// InitializeCycle opens a new active cycle for the subject. The cycle number
// and start date follow the subject's last cycle, or start at 1 and now.
// The store rejects a second active cycle with CodePersistence.
func (s *Service) InitializeCycle(ctx context.Context, subjectID id.SubjectID, metrics models.CarryForwardMetrics) (cycle *models.Cycle, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, transitionInitialize, subjectID)
	defer func() { s.finish(span, transitionInitialize, start, err) }()

	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}

	now := s.now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		created, err := s.initializeInTx(ctx, stores, subjectID, metrics, now)
		if err != nil {
			return err
		}
		cycle = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cycle initialized",
		"cycle_id", cycle.ID,
		"subject_id", subjectID,
		"cycle_number", cycle.CycleNumber,
		"start_date", cycle.StartDate,
		"end_date", cycle.EndDate,
	)
	return cycle, nil
}

func (s *Service) initializeInTx(
	ctx context.Context,
	stores ports.Stores,
	subjectID id.SubjectID,
	metrics models.CarryForwardMetrics,
	now time.Time,
) (*models.Cycle, error) {
	number, startDate := 1, now
	last, err := stores.Cycles.FindLast(ctx, subjectID)
	switch {
	case err == nil:
		number = last.CycleNumber + 1
		startDate = last.EndDate
	case errors.Is(err, sentinel.ErrNotFound):
		// Only a first cycle renews a registration that has already lapsed;
		// successors receive metrics already advanced by StartNextCycle.
		metrics = metrics.SeedFor(startDate)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load last cycle")
	}

	cycle, err := models.NewCycle(subjectID, number, startDate, metrics, now)
	if err != nil {
		return nil, err
	}
	if err := stores.Cycles.Create(ctx, cycle); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "subject already has an active cycle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create cycle")
	}
	return cycle, nil
}

// CompleteCycle archives the subject's active cycle. The evidence snapshot is
// built first; the cycle patch and the audit record then commit together.
// A degraded snapshot still completes; the caller reads the warning from
// Snapshot.PartialWarning.
func (s *Service) CompleteCycle(ctx context.Context, subjectID id.SubjectID, reference string) (snap *models.Snapshot, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, transitionComplete, subjectID)
	defer func() { s.finish(span, transitionComplete, start, err) }()

	current, completion, err := s.prepareCompletion(ctx, subjectID, reference)
	if err != nil {
		return nil, err
	}

	var done *models.Cycle
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		var err error
		done, err = s.completeInTx(ctx, stores, current.ID, completion)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, done)
	return done.ArchivedSnapshot, nil
}

// StartNextCycle opens the cycle that follows the subject's last one, seeded
// from its carry-forward metrics with the expiry advanced by one renewal
// period.
func (s *Service) StartNextCycle(ctx context.Context, subjectID id.SubjectID) (cycle *models.Cycle, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, transitionStartNext, subjectID)
	defer func() { s.finish(span, transitionStartNext, start, err) }()

	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}

	now := s.now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		var err error
		cycle, err = s.startNextInTx(ctx, stores, subjectID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "next cycle started",
		"cycle_id", cycle.ID,
		"subject_id", subjectID,
		"cycle_number", cycle.CycleNumber,
		"carried_expiry", cycle.CarryForward.ExpiryDate,
	)
	return cycle, nil
}

// CompleteAndRenew chains completion and next-cycle start in one
// transaction: either both happen or neither does.
func (s *Service) CompleteAndRenew(ctx context.Context, subjectID id.SubjectID, reference string) (result *Renewal, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, transitionRenew, subjectID)
	defer func() { s.finish(span, transitionRenew, start, err) }()

	current, completion, err := s.prepareCompletion(ctx, subjectID, reference)
	if err != nil {
		return nil, err
	}

	var done, next *models.Cycle
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		var err error
		if done, err = s.completeInTx(ctx, stores, current.ID, completion); err != nil {
			return err
		}
		next, err = s.startNextInTx(ctx, stores, subjectID, completion.SubmissionDate)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, done)
	s.logger.InfoContext(ctx, "next cycle started",
		"cycle_id", next.ID,
		"subject_id", subjectID,
		"cycle_number", next.CycleNumber,
	)
	return &Renewal{Snapshot: done.ArchivedSnapshot, Next: next}, nil
}

// prepareCompletion loads the active cycle, checks the transition and builds
// the snapshot. It runs outside the transaction: evidence reads are slow and
// the conditional patch re-checks the status anyway.
func (s *Service) prepareCompletion(ctx context.Context, subjectID id.SubjectID, reference string) (*models.Cycle, models.Completion, error) {
	if subjectID.IsNil() {
		return nil, models.Completion{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	current, err := s.cycles.FindCurrent(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Completion{}, dErrors.New(dErrors.CodeNoActiveCycle, "subject has no active cycle")
		}
		return nil, models.Completion{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current cycle")
	}

	now := s.now(ctx)
	if err := current.CanComplete(now); err != nil {
		return nil, models.Completion{}, err
	}

	completion := models.Completion{
		SubmissionDate:      now,
		SubmissionReference: strings.TrimSpace(reference),
	}
	snap := s.snapshots.Build(ctx, current.Completed(completion))
	snap.CapturedAt = now
	completion.Snapshot = snap

	if warning := snap.PartialWarning(); warning != nil {
		s.logger.WarnContext(ctx, "completing cycle with partial snapshot",
			"cycle_id", current.ID,
			"subject_id", subjectID,
			"warning", warning.Error(),
		)
	}
	return current, completion, nil
}

func (s *Service) completeInTx(ctx context.Context, stores ports.Stores, cycleID id.CycleID, completion models.Completion) (*models.Cycle, error) {
	done, err := stores.Cycles.CompleteIfActive(ctx, cycleID, completion)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNoActiveCycle, "cycle is no longer active")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete cycle")
	}
	if _, err := s.audit.record(ctx, stores.Audits, done, completion.SubmissionDate, false); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "submission audit already recorded for cycle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record submission audit")
	}
	return done, nil
}

func (s *Service) startNextInTx(ctx context.Context, stores ports.Stores, subjectID id.SubjectID, now time.Time) (*models.Cycle, error) {
	last, err := stores.Cycles.FindLast(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNoCarryForward, "subject has no prior cycle to carry forward")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load last cycle")
	}
	if last.CarryForward == nil {
		return nil, dErrors.New(dErrors.CodeNoCarryForward, "last cycle has no carry-forward metrics")
	}
	return s.initializeInTx(ctx, stores, subjectID, last.CarryForward.Advance(), now)
}

func (s *Service) afterCompletion(ctx context.Context, done *models.Cycle) {
	s.logger.InfoContext(ctx, "cycle completed",
		"cycle_id", done.ID,
		"subject_id", done.SubjectID,
		"cycle_number", done.CycleNumber,
		"submission_reference", done.SubmissionReference,
		"complete_snapshot", done.ArchivedSnapshot.Completeness.Complete,
		"entries", done.ArchivedSnapshot.EntryCount(),
	)
	s.cacheArchive(ctx, done.ID, done.ArchivedSnapshot)
}

func subjectAttr(subjectID id.SubjectID) attribute.KeyValue {
	return attribute.String("subject_id", subjectID.String())
}
