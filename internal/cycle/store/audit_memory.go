package store

import (
	"context"
	"sync"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
)

type storedAudit struct {
	record   models.SubmissionAudit
	snapshot []byte
}

// InMemoryAudit is an append-only AuditStore. One record per cycle.
type InMemoryAudit struct {
	mu       sync.RWMutex
	records  []storedAudit
	failNext error
}

func NewInMemoryAudit() *InMemoryAudit {
	return &InMemoryAudit{}
}

func (s *InMemoryAudit) Append(_ context.Context, record *models.SubmissionAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	for _, r := range s.records {
		if r.record.CycleID == record.CycleID {
			return sentinel.ErrConflict
		}
	}
	if record.ID.IsNil() {
		record.ID = id.NewAuditID()
	}
	stored := storedAudit{record: *record}
	stored.record.Snapshot = nil
	if record.Snapshot != nil {
		b, err := record.Snapshot.Encode()
		if err != nil {
			return err
		}
		stored.snapshot = b
	}
	s.records = append(s.records, stored)
	return nil
}

func (s *InMemoryAudit) ExistsForCycle(_ context.Context, cycleID id.CycleID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.record.CycleID == cycleID {
			return true, nil
		}
	}
	return false, nil
}

// FindByCycle returns the audit record for a cycle. Used by compliance
// tooling and tests; the cycle service never reads audit records back.
func (s *InMemoryAudit) FindByCycle(_ context.Context, cycleID id.CycleID) (*models.SubmissionAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.record.CycleID != cycleID {
			continue
		}
		out := r.record
		if r.snapshot != nil {
			snap, err := models.DecodeSnapshot(r.snapshot)
			if err != nil {
				return nil, err
			}
			out.Snapshot = snap
		}
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

// Count returns the number of records held.
func (s *InMemoryAudit) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FailNextAppend makes the next Append return err. Tests use it to inject a
// failure between the cycle patch and the audit write.
func (s *InMemoryAudit) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryAudit) checkpoint() []storedAudit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]storedAudit(nil), s.records...)
}

func (s *InMemoryAudit) restore(records []storedAudit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}
