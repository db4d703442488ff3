// Package reconcile schedules the sweep that repairs completed cycles whose
// submission audit record is missing.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"revalidation/internal/cycle/service"
)

// Reconciler is the service operation the scheduler drives.
type Reconciler interface {
	Reconcile(ctx context.Context, dryRun bool) (*service.ReconcileReport, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	logger     *slog.Logger
	schedule   string
	timeout    time.Duration
	running    atomic.Bool
}

func NewScheduler(reconciler Reconciler, logger *slog.Logger, schedule string, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		reconciler: reconciler,
		logger:     logger,
		schedule:   schedule,
		timeout:    timeout,
	}
}

// Start registers the sweep and starts the cron engine. An invalid schedule
// is returned rather than silently ignored.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("add reconcile job %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("reconcile scheduler started", "schedule", s.schedule)
	return nil
}

// RunOnce performs one sweep. Overlapping runs are skipped.
func (s *Scheduler) RunOnce() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("reconcile sweep still running, skipping")
		return
	}
	defer s.running.Store(false)

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.reconciler.Reconcile(ctx, false)
	if err != nil {
		s.logger.ErrorContext(ctx, "reconcile sweep failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "reconcile sweep finished",
		"checked", report.Checked,
		"missing", len(report.Missing),
		"repaired", report.Repaired,
		"failed", report.Failed,
	)
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("reconcile scheduler stopped")
}
