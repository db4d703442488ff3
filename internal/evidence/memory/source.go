// Package memory is an in-process evidence source for local development and
// tests. Records are keyed by cycle; the scope decides whether a read returns
// one cycle's records or everything the subject has.
package memory

import (
	"context"
	"sync"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
)

type record struct {
	cycleID id.CycleID
	value   any
}

// Source implements ports.EvidenceSource.
type Source struct {
	mu       sync.RWMutex
	records  map[id.SubjectID]map[models.Category][]record
	profiles map[id.SubjectID]models.Profile
	failures map[models.Category]error
}

func New() *Source {
	return &Source{
		records:  make(map[id.SubjectID]map[models.Category][]record),
		profiles: make(map[id.SubjectID]models.Profile),
		failures: make(map[models.Category]error),
	}
}

// Add stores an entry for the given cycle. value must be the category's entry type.
func (s *Source) Add(subjectID id.SubjectID, cycleID id.CycleID, category models.Category, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySubject, ok := s.records[subjectID]
	if !ok {
		bySubject = make(map[models.Category][]record)
		s.records[subjectID] = bySubject
	}
	bySubject[category] = append(bySubject[category], record{cycleID: cycleID, value: value})
}

func (s *Source) SetProfile(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.SubjectID] = profile
}

// Fail makes every read of category return err until cleared with a nil err.
func (s *Source) Fail(category models.Category, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, category)
		return
	}
	s.failures[category] = err
}

func list[T any](ctx context.Context, s *Source, category models.Category, scope models.Scope) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[category]; err != nil {
		return nil, err
	}
	out := []T{}
	for _, r := range s.records[scope.SubjectID][category] {
		if scope.Kind == models.ScopeCycle && r.cycleID != scope.CycleID {
			continue
		}
		if v, ok := r.value.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Source) PracticeHours(ctx context.Context, scope models.Scope) ([]models.PracticeHoursEntry, error) {
	return list[models.PracticeHoursEntry](ctx, s, models.CategoryPracticeHours, scope)
}

func (s *Source) CPD(ctx context.Context, scope models.Scope) ([]models.CPDEntry, error) {
	return list[models.CPDEntry](ctx, s, models.CategoryCPD, scope)
}

func (s *Source) Feedback(ctx context.Context, scope models.Scope) ([]models.FeedbackEntry, error) {
	return list[models.FeedbackEntry](ctx, s, models.CategoryFeedback, scope)
}

func (s *Source) ReflectiveAccounts(ctx context.Context, scope models.Scope) ([]models.ReflectiveAccountEntry, error) {
	return list[models.ReflectiveAccountEntry](ctx, s, models.CategoryReflectiveAccounts, scope)
}

func (s *Source) ReflectiveDiscussions(ctx context.Context, scope models.Scope) ([]models.ReflectiveDiscussionEntry, error) {
	return list[models.ReflectiveDiscussionEntry](ctx, s, models.CategoryReflectiveDiscussions, scope)
}

func (s *Source) Declarations(ctx context.Context, scope models.Scope) ([]models.DeclarationEntry, error) {
	return list[models.DeclarationEntry](ctx, s, models.CategoryDeclarations, scope)
}

func (s *Source) Confirmations(ctx context.Context, scope models.Scope) ([]models.ConfirmationEntry, error) {
	return list[models.ConfirmationEntry](ctx, s, models.CategoryConfirmations, scope)
}

func (s *Source) Training(ctx context.Context, scope models.Scope) ([]models.TrainingEntry, error) {
	return list[models.TrainingEntry](ctx, s, models.CategoryTraining, scope)
}

func (s *Source) Profile(ctx context.Context, subjectID id.SubjectID) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[models.CategoryProfile]; err != nil {
		return nil, err
	}
	profile, ok := s.profiles[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &profile, nil
}
