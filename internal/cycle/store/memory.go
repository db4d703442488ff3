package store

import (
	"context"
	"sync"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
)

// storedCycle keeps the archived snapshot serialized, as the database does,
// so no caller can mutate an archive through a shared pointer.
type storedCycle struct {
	cycle    models.Cycle
	archived []byte
}

// InMemory is a CycleStore for tests and single-process development. It
// enforces the same uniqueness rules as the PostgreSQL schema.
type InMemory struct {
	mu        sync.RWMutex
	cycles    map[id.CycleID]storedCycle
	bySubject map[id.SubjectID][]id.CycleID
	order     []id.CycleID
}

func NewInMemory() *InMemory {
	return &InMemory{
		cycles:    make(map[id.CycleID]storedCycle),
		bySubject: make(map[id.SubjectID][]id.CycleID),
	}
}

func (s *InMemory) Create(_ context.Context, cycle *models.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cycleID := range s.bySubject[cycle.SubjectID] {
		existing := s.cycles[cycleID].cycle
		if existing.IsActive() && cycle.IsActive() {
			return sentinel.ErrConflict
		}
		if existing.CycleNumber == cycle.CycleNumber {
			return sentinel.ErrConflict
		}
	}
	if cycle.ID.IsNil() {
		cycle.ID = id.NewCycleID()
	} else if _, exists := s.cycles[cycle.ID]; exists {
		return sentinel.ErrConflict
	}

	stored := storedCycle{cycle: *cycle.Clone()}
	stored.cycle.ArchivedSnapshot = nil
	if cycle.ArchivedSnapshot != nil {
		b, err := cycle.ArchivedSnapshot.Encode()
		if err != nil {
			return err
		}
		stored.archived = b
	}
	s.cycles[cycle.ID] = stored
	s.bySubject[cycle.SubjectID] = append(s.bySubject[cycle.SubjectID], cycle.ID)
	s.order = append(s.order, cycle.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, cycleID id.CycleID) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.cycles[cycleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return stored.toModel()
}

func (s *InMemory) FindCurrent(_ context.Context, subjectID id.SubjectID) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cycleID := range s.bySubject[subjectID] {
		if stored := s.cycles[cycleID]; stored.cycle.IsActive() {
			return stored.toModel()
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindLast(_ context.Context, subjectID id.SubjectID) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySubject[subjectID]
	if len(ids) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.cycles[ids[len(ids)-1]].toModel()
}

func (s *InMemory) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Cycle, 0, len(s.bySubject[subjectID]))
	for _, cycleID := range s.bySubject[subjectID] {
		c, err := s.cycles[cycleID].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *InMemory) CompleteIfActive(_ context.Context, cycleID id.CycleID, completion models.Completion) (*models.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cycles[cycleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !stored.cycle.IsActive() {
		return nil, sentinel.ErrInvalidState
	}
	var archived []byte
	if completion.Snapshot != nil {
		b, err := completion.Snapshot.Encode()
		if err != nil {
			return nil, err
		}
		archived = b
	}
	stored.cycle.ApplyCompletion(models.Completion{
		SubmissionDate:      completion.SubmissionDate,
		SubmissionReference: completion.SubmissionReference,
	})
	stored.archived = archived
	s.cycles[cycleID] = stored
	return stored.toModel()
}

func (s *InMemory) FindArchivedSnapshot(_ context.Context, cycleID id.CycleID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.cycles[cycleID]
	if !ok || stored.cycle.IsActive() || stored.archived == nil {
		return nil, sentinel.ErrNotFound
	}
	return models.DecodeSnapshot(stored.archived)
}

func (s *InMemory) ListCompleted(_ context.Context) ([]*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Cycle
	for _, cycleID := range s.order {
		stored := s.cycles[cycleID]
		if stored.cycle.IsActive() {
			continue
		}
		c, err := stored.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MarkArchived applies the retention label. It stands in for the external
// retention process in tests; the cycle service never calls it.
func (s *InMemory) MarkArchived(cycleID id.CycleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cycles[cycleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.cycle.Status != models.CycleStatusCompleted {
		return sentinel.ErrInvalidState
	}
	stored.cycle.Status = models.CycleStatusArchived
	s.cycles[cycleID] = stored
	return nil
}

// CountActive returns the number of active cycles for subject.
func (s *InMemory) CountActive(subjectID id.SubjectID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, cycleID := range s.bySubject[subjectID] {
		if stored := s.cycles[cycleID]; stored.cycle.IsActive() {
			n++
		}
	}
	return n
}

type memoryCheckpoint struct {
	cycles    map[id.CycleID]storedCycle
	bySubject map[id.SubjectID][]id.CycleID
	order     []id.CycleID
}

func (s *InMemory) checkpoint() memoryCheckpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := memoryCheckpoint{
		cycles:    make(map[id.CycleID]storedCycle, len(s.cycles)),
		bySubject: make(map[id.SubjectID][]id.CycleID, len(s.bySubject)),
		order:     append([]id.CycleID(nil), s.order...),
	}
	for k, v := range s.cycles {
		cp.cycles[k] = storedCycle{cycle: *v.cycle.Clone(), archived: v.archived}
	}
	for k, v := range s.bySubject {
		cp.bySubject[k] = append([]id.CycleID(nil), v...)
	}
	return cp
}

func (s *InMemory) restore(cp memoryCheckpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = cp.cycles
	s.bySubject = cp.bySubject
	s.order = cp.order
}

func (c storedCycle) toModel() (*models.Cycle, error) {
	out := c.cycle.Clone()
	if c.archived != nil {
		snap, err := models.DecodeSnapshot(c.archived)
		if err != nil {
			return nil, err
		}
		out.ArchivedSnapshot = snap
	}
	return out, nil
}
