// Package snapshot assembles the point-in-time evidence archive for a cycle.
//
// Every category is read concurrently. A read that fails degrades to an empty
// category and is recorded on the snapshot's Completeness block; the build
// itself never fails.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"revalidation/internal/cycle/metrics"
	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
)

const defaultTimeout = 10 * time.Second

// ScopePolicy maps each evidence category to the identifier it is filtered by.
// The profile is always read by subject.
type ScopePolicy map[models.Category]models.ScopeKind

// DefaultScopePolicy reads every evidence category by cycle. Records created
// in an earlier cycle must not leak into a later cycle's archive.
var DefaultScopePolicy = ScopePolicy{
	models.CategoryPracticeHours:         models.ScopeCycle,
	models.CategoryCPD:                   models.ScopeCycle,
	models.CategoryFeedback:              models.ScopeCycle,
	models.CategoryReflectiveAccounts:    models.ScopeCycle,
	models.CategoryReflectiveDiscussions: models.ScopeCycle,
	models.CategoryDeclarations:          models.ScopeCycle,
	models.CategoryConfirmations:         models.ScopeCycle,
	models.CategoryTraining:              models.ScopeCycle,
}

// Builder gathers evidence from the collaborators into a Snapshot.
type Builder struct {
	source  ports.EvidenceSource
	logger  *slog.Logger
	metrics *metrics.Metrics
	policy  ScopePolicy
	timeout time.Duration
	clock   func() time.Time
}

// Option configures the Builder.
type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithTimeout bounds the whole fan-out. Reads still running at the deadline degrade.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithScopePolicy(p ScopePolicy) Option {
	return func(b *Builder) {
		if p != nil {
			b.policy = p
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func New(source ports.EvidenceSource, opts ...Option) *Builder {
	b := &Builder{
		source:  source,
		logger:  slog.Default(),
		policy:  DefaultScopePolicy,
		timeout: defaultTimeout,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build captures the evidence for cycle. The cycle value is embedded as given;
// callers pass the record as it will read once completed.
func (b *Builder) Build(ctx context.Context, cycle models.Cycle) *models.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	snap := &models.Snapshot{Cycle: cycle}
	tracker := &degradation{}

	// Reads never return errors to the group: a failed category must not
	// cancel its siblings.
	var g errgroup.Group

	g.Go(func() error {
		snap.PracticeHours = read(ctx, b, tracker, models.CategoryPracticeHours, cycle, b.source.PracticeHours)
		return nil
	})
	g.Go(func() error {
		snap.CPD = read(ctx, b, tracker, models.CategoryCPD, cycle, b.source.CPD)
		return nil
	})
	g.Go(func() error {
		snap.Feedback = read(ctx, b, tracker, models.CategoryFeedback, cycle, b.source.Feedback)
		return nil
	})
	g.Go(func() error {
		snap.ReflectiveAccounts = read(ctx, b, tracker, models.CategoryReflectiveAccounts, cycle, b.source.ReflectiveAccounts)
		return nil
	})
	g.Go(func() error {
		snap.ReflectiveDiscussions = read(ctx, b, tracker, models.CategoryReflectiveDiscussions, cycle, b.source.ReflectiveDiscussions)
		return nil
	})
	g.Go(func() error {
		snap.Declarations = read(ctx, b, tracker, models.CategoryDeclarations, cycle, b.source.Declarations)
		return nil
	})
	g.Go(func() error {
		snap.Confirmations = read(ctx, b, tracker, models.CategoryConfirmations, cycle, b.source.Confirmations)
		return nil
	})
	g.Go(func() error {
		snap.Training = read(ctx, b, tracker, models.CategoryTraining, cycle, b.source.Training)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		profile, err := b.source.Profile(ctx, cycle.SubjectID)
		b.metrics.ObserveRead(models.CategoryProfile, time.Since(start))
		if err != nil {
			b.degrade(ctx, tracker, models.CategoryProfile, cycle, err)
			return nil
		}
		snap.Profile = profile
		return nil
	})

	_ = g.Wait()

	snap.CapturedAt = b.clock()
	snap.Completeness = tracker.completeness()
	return snap
}

func (b *Builder) scopeFor(category models.Category, cycle models.Cycle) models.Scope {
	if b.policy[category] == models.ScopeSubject {
		return models.SubjectScope(cycle.SubjectID)
	}
	return models.CycleScope(cycle.ID, cycle.SubjectID)
}

func (b *Builder) degrade(ctx context.Context, tracker *degradation, category models.Category, cycle models.Cycle, err error) {
	tracker.add(category, err)
	b.metrics.IncDegraded(category)
	b.logger.WarnContext(ctx, "evidence read degraded to empty",
		"category", category,
		"cycle_id", cycle.ID,
		"subject_id", cycle.SubjectID,
		"error", err,
	)
}

// read runs one category read and falls back to an empty, non-nil slice.
func read[T any](
	ctx context.Context,
	b *Builder,
	tracker *degradation,
	category models.Category,
	cycle models.Cycle,
	fetch func(context.Context, models.Scope) ([]T, error),
) []T {
	start := time.Now()
	entries, err := fetch(ctx, b.scopeFor(category, cycle))
	b.metrics.ObserveRead(category, time.Since(start))
	if err != nil {
		b.degrade(ctx, tracker, category, cycle, err)
		return []T{}
	}
	if entries == nil {
		return []T{}
	}
	return entries
}

type degradation struct {
	mu       sync.Mutex
	degraded []models.DegradedCategory
}

func (d *degradation) add(category models.Category, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.degraded = append(d.degraded, models.DegradedCategory{Category: category, Reason: err.Error()})
}

// completeness orders degraded categories by snapshot order so the archive
// is deterministic regardless of which read finished first.
func (d *degradation) completeness() models.Completeness {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.degraded) == 0 {
		return models.Completeness{Complete: true}
	}
	ordered := make([]models.DegradedCategory, 0, len(d.degraded))
	for _, category := range models.AllCategories {
		for _, dc := range d.degraded {
			if dc.Category == category {
				ordered = append(ordered, dc)
			}
		}
	}
	return models.Completeness{Complete: false, Degraded: ordered}
}
