package service

import (
	"context"
	"errors"
	"time"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/platform/sentinel"
)

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	Checked  int          `json:"checked"`
	Missing  []id.CycleID `json:"missing"`
	Repaired int          `json:"repaired"`
	Failed   int          `json:"failed"`
	DryRun   bool         `json:"dry_run"`
}

// Reconcile finds completed cycles without a submission audit record and,
// unless dryRun is set, writes the missing record from the cycle's archived
// snapshot. Such gaps only arise from data written outside the completion
// transaction (imports, manual repair), so finding any is logged as an error.
func (s *Service) Reconcile(ctx context.Context, dryRun bool) (report *ReconcileReport, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "cycle.reconcile")
	defer func() { s.finish(span, "reconcile", start, err) }()

	completed, err := s.cycles.ListCompleted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed cycles")
	}

	report = &ReconcileReport{DryRun: dryRun, Missing: []id.CycleID{}}
	for _, c := range completed {
		report.Checked++
		if c.ArchivedSnapshot == nil {
			// A completed cycle always carries its archive; without one there is
			// nothing to rebuild the audit record from.
			report.Failed++
			s.logger.ErrorContext(ctx, "completed cycle has no archived snapshot",
				"cycle_id", c.ID,
				"subject_id", c.SubjectID,
			)
			continue
		}
		repaired, missing, err := s.reconcileCycle(ctx, c, dryRun)
		if missing {
			report.Missing = append(report.Missing, c.ID)
		}
		if err != nil {
			report.Failed++
			s.logger.ErrorContext(ctx, "audit reconciliation failed",
				"cycle_id", c.ID,
				"subject_id", c.SubjectID,
				"error", err,
			)
			continue
		}
		if repaired {
			report.Repaired++
			s.metrics.IncReconciled()
		}
	}

	if len(report.Missing) > 0 {
		s.logger.ErrorContext(ctx, "completed cycles were missing submission audits",
			"missing", len(report.Missing),
			"repaired", report.Repaired,
			"dry_run", dryRun,
		)
	}
	return report, nil
}

// reconcileCycle re-checks inside the transaction so a concurrent sweep
// cannot write a second record.
func (s *Service) reconcileCycle(ctx context.Context, c *models.Cycle, dryRun bool) (repaired, missing bool, err error) {
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		exists, err := stores.Audits.ExistsForCycle(ctx, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		missing = true
		if dryRun {
			return nil
		}
		if _, err := s.audit.record(ctx, stores.Audits, c, s.now(ctx), true); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil
			}
			return err
		}
		repaired = true
		return nil
	})
	return repaired, missing, err
}
