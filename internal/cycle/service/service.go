// Package service is the cycle lifecycle controller. It owns the state machine
// (initialize, complete, start next), the audit write that accompanies every
// completion, and the read operations over cycles and their archives.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"revalidation/internal/cycle/metrics"
	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/requestcontext"
)

var tracer = otel.Tracer("revalidation.cycle")

// SnapshotBuilder captures the evidence archive for a cycle. Build never
// fails; degraded reads are reported on the snapshot's Completeness block.
type SnapshotBuilder interface {
	Build(ctx context.Context, cycle models.Cycle) *models.Snapshot
}

// ArchiveCache is an optional read-through cache of archived snapshots.
// Archives are immutable, so entries never need invalidation.
type ArchiveCache interface {
	Get(ctx context.Context, cycleID id.CycleID) (*models.Snapshot, error)
	Set(ctx context.Context, cycleID id.CycleID, snap *models.Snapshot) error
}

// Service orchestrates cycle transitions.
type Service struct {
	cycles    ports.CycleStore
	tx        ports.Tx
	snapshots SnapshotBuilder
	cache     ArchiveCache
	audit     *auditRecorder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock pins the clock. Without it the service reads the request-scoped
// time from the context, falling back to the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithArchiveCache(cache ArchiveCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a Service. cycles serves reads outside a transaction; every
// write goes through tx.
func New(cycles ports.CycleStore, tx ports.Tx, snapshots SnapshotBuilder, opts ...Option) *Service {
	s := &Service{
		cycles:    cycles,
		tx:        tx,
		snapshots: snapshots,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = newAuditRecorder(s.logger)
	return s
}

// now returns the operation time in UTC at the precision the database keeps,
// so values survive a persistence round trip unchanged.
func (s *Service) now(ctx context.Context) time.Time {
	var t time.Time
	if s.clock != nil {
		t = s.clock()
	} else {
		t = requestcontext.Now(ctx)
	}
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Service) startSpan(ctx context.Context, name string, subjectID id.SubjectID) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "cycle."+name)
	span.SetAttributes(subjectAttr(subjectID))
	return ctx, span
}

// finish records the outcome of an operation on its span and metrics.
func (s *Service) finish(span trace.Span, transition string, start time.Time, err error) {
	defer span.End()
	s.metrics.ObserveOperation(transition, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.metrics.IncTransition(transition, string(dErrors.CodeOf(err)))
		return
	}
	span.SetStatus(codes.Ok, "")
	s.metrics.IncTransition(transition, "ok")
}
