package service

import (
	"context"
	"errors"

	"revalidation/internal/cycle/export"
	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/platform/sentinel"
)

// CurrentCycle is the active cycle with its evaluated expiry status.
type CurrentCycle struct {
	Cycle  *models.Cycle       `json:"cycle"`
	Status models.ExpiryStatus `json:"status"`
}

func (s *Service) GetCurrentCycle(ctx context.Context, subjectID id.SubjectID) (*CurrentCycle, error) {
	current, err := s.cycles.FindCurrent(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject has no active cycle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current cycle")
	}
	return &CurrentCycle{Cycle: current, Status: models.Evaluate(current, s.now(ctx))}, nil
}

// GetCycleHistory lists every cycle for the subject in cycle-number order.
// Archived snapshots are left out; GetArchivedData serves them one at a time.
func (s *Service) GetCycleHistory(ctx context.Context, subjectID id.SubjectID) ([]*models.Cycle, error) {
	cycles, err := s.cycles.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cycles")
	}
	out := make([]*models.Cycle, 0, len(cycles))
	for _, c := range cycles {
		c.ArchivedSnapshot = nil
		out = append(out, c)
	}
	return out, nil
}

// GetArchivedData returns the archived snapshot of one of the subject's
// completed cycles. A cycle owned by another subject reads as not found.
func (s *Service) GetArchivedData(ctx context.Context, subjectID id.SubjectID, cycleID id.CycleID) (*models.Snapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, cycleID)
		switch {
		case err == nil && snap.Cycle.SubjectID == subjectID:
			return snap, nil
		case err == nil, errors.Is(err, sentinel.ErrNotFound):
		default:
			s.logger.WarnContext(ctx, "archive cache read failed", "cycle_id", cycleID, "error", err)
		}
	}

	snap, err := s.cycles.FindArchivedSnapshot(ctx, cycleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no archived data for cycle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load archived data")
	}
	if snap.Cycle.SubjectID != subjectID {
		return nil, dErrors.New(dErrors.CodeNotFound, "no archived data for cycle")
	}
	s.cacheArchive(ctx, cycleID, snap)
	return snap, nil
}

// ExportCycle renders a completed cycle's archive. The format is checked
// before anything is read.
func (s *Service) ExportCycle(ctx context.Context, subjectID id.SubjectID, cycleID id.CycleID, format string) (*export.Artifact, error) {
	f := export.ParseFormat(format)
	if err := export.CheckFormat(f); err != nil {
		s.metrics.IncExport(string(f), string(dErrors.CodeOf(err)))
		return nil, err
	}
	snap, err := s.GetArchivedData(ctx, subjectID, cycleID)
	if err != nil {
		s.metrics.IncExport(string(f), string(dErrors.CodeOf(err)))
		return nil, err
	}
	artifact, err := export.Export(snap, f)
	if err != nil {
		s.metrics.IncExport(string(f), string(dErrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncExport(string(f), "ok")
	return artifact, nil
}

func (s *Service) cacheArchive(ctx context.Context, cycleID id.CycleID, snap *models.Snapshot) {
	if s.cache == nil || snap == nil {
		return
	}
	if err := s.cache.Set(ctx, cycleID, snap); err != nil {
		s.logger.WarnContext(ctx, "archive cache write failed", "cycle_id", cycleID, "error", err)
	}
}
