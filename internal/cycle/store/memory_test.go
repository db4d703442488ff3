package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
)

type CycleStoreSuite struct {
	suite.Suite
	cycles  *InMemory
	audits  *InMemoryAudit
	tx      *InMemoryTx
	ctx     context.Context
	subject id.SubjectID
	start   time.Time
}

func (s *CycleStoreSuite) SetupTest() {
	s.cycles = NewInMemory()
	s.audits = NewInMemoryAudit()
	s.tx = NewInMemoryTx(s.cycles, s.audits)
	s.ctx = context.Background()
	s.subject = id.SubjectID(uuid.New())
	s.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestCycleStoreSuite(t *testing.T) {
	suite.Run(t, new(CycleStoreSuite))
}

func (s *CycleStoreSuite) newCycle(number int) *models.Cycle {
	c, err := models.NewCycle(s.subject, number, s.start, models.CarryForwardMetrics{
		Role:                   "Nurse",
		ContractedHoursPerWeek: 37.5,
		ExpiryDate:             time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}, s.start)
	s.Require().NoError(err)
	return c
}

func (s *CycleStoreSuite) completion() models.Completion {
	return models.Completion{
		SubmissionDate:      s.start.AddDate(1, 0, 0),
		SubmissionReference: "REF-1",
		Snapshot:            &models.Snapshot{CapturedAt: s.start.AddDate(1, 0, 0), Completeness: models.Completeness{Complete: true}},
	}
}

func (s *CycleStoreSuite) TestCreateAndLookups() {
	s.Run("assigns an ID and finds the cycle", func() {
		c := s.newCycle(1)
		s.Require().NoError(s.cycles.Create(s.ctx, c))
		s.False(c.ID.IsNil())

		found, err := s.cycles.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(1, found.CycleNumber)

		current, err := s.cycles.FindCurrent(s.ctx, s.subject)
		s.Require().NoError(err)
		s.Equal(c.ID, current.ID)
	})

	s.Run("returns ErrNotFound for unknown IDs and subjects", func() {
		_, err := s.cycles.FindByID(s.ctx, id.CycleID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)

		other := id.SubjectID(uuid.New())
		_, err = s.cycles.FindCurrent(s.ctx, other)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.cycles.FindLast(s.ctx, other)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *CycleStoreSuite) TestUniqueness() {
	first := s.newCycle(1)
	s.Require().NoError(s.cycles.Create(s.ctx, first))

	s.Run("rejects a second active cycle", func() {
		err := s.cycles.Create(s.ctx, s.newCycle(2))
		s.ErrorIs(err, sentinel.ErrConflict)
		s.Equal(1, s.cycles.CountActive(s.subject))
	})

	s.Run("rejects a duplicate cycle number after completion", func() {
		_, err := s.cycles.CompleteIfActive(s.ctx, first.ID, s.completion())
		s.Require().NoError(err)

		err = s.cycles.Create(s.ctx, s.newCycle(1))
		s.ErrorIs(err, sentinel.ErrConflict)

		s.NoError(s.cycles.Create(s.ctx, s.newCycle(2)))
	})
}

func (s *CycleStoreSuite) TestCompleteIfActive() {
	c := s.newCycle(1)
	s.Require().NoError(s.cycles.Create(s.ctx, c))

	done, err := s.cycles.CompleteIfActive(s.ctx, c.ID, s.completion())
	s.Require().NoError(err)
	s.Equal(models.CycleStatusCompleted, done.Status)
	s.Require().NotNil(done.SubmissionDate)
	s.Require().NotNil(done.ArchivedSnapshot)
	s.Equal("REF-1", done.SubmissionReference)

	s.Run("second completion fails with ErrInvalidState", func() {
		_, err := s.cycles.CompleteIfActive(s.ctx, c.ID, s.completion())
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown cycle fails with ErrNotFound", func() {
		_, err := s.cycles.CompleteIfActive(s.ctx, id.CycleID(uuid.New()), s.completion())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("archived snapshot cannot be mutated through a returned copy", func() {
		first, err := s.cycles.FindArchivedSnapshot(s.ctx, c.ID)
		s.Require().NoError(err)
		first.CPD = append(first.CPD, models.CPDEntry{ID: "mutated"})

		again, err := s.cycles.FindArchivedSnapshot(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Empty(again.CPD)
	})
}

func (s *CycleStoreSuite) TestConcurrentCompletionHasOneWinner() {
	c := s.newCycle(1)
	s.Require().NoError(s.cycles.Create(s.ctx, c))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins, invalid atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.cycles.CompleteIfActive(s.ctx, c.ID, s.completion())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), invalid.Load())
}

func (s *CycleStoreSuite) TestArchivedSnapshotAndListing() {
	c := s.newCycle(1)
	s.Require().NoError(s.cycles.Create(s.ctx, c))

	_, err := s.cycles.FindArchivedSnapshot(s.ctx, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "active cycles have no archive")

	_, err = s.cycles.CompleteIfActive(s.ctx, c.ID, s.completion())
	s.Require().NoError(err)
	next := s.newCycle(2)
	s.Require().NoError(s.cycles.Create(s.ctx, next))

	history, err := s.cycles.ListBySubject(s.ctx, s.subject)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(1, history[0].CycleNumber)
	s.Equal(2, history[1].CycleNumber)

	last, err := s.cycles.FindLast(s.ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(next.ID, last.ID)

	completed, err := s.cycles.ListCompleted(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(completed, 1)
	s.Equal(c.ID, completed[0].ID)

	s.Run("archival label keeps the snapshot readable", func() {
		s.Require().NoError(s.cycles.MarkArchived(c.ID))
		snap, err := s.cycles.FindArchivedSnapshot(s.ctx, c.ID)
		s.Require().NoError(err)
		s.True(snap.Completeness.Complete)
		s.ErrorIs(s.cycles.MarkArchived(next.ID), sentinel.ErrInvalidState)
	})
}

func (s *CycleStoreSuite) TestAuditStore() {
	cycleID := id.CycleID(uuid.New())
	record := &models.SubmissionAudit{
		CycleID:    cycleID,
		SubjectID:  s.subject,
		Snapshot:   &models.Snapshot{Completeness: models.Completeness{Complete: true}},
		RecordedAt: s.start,
	}
	s.Require().NoError(s.audits.Append(s.ctx, record))
	s.False(record.ID.IsNil())

	exists, err := s.audits.ExistsForCycle(s.ctx, cycleID)
	s.Require().NoError(err)
	s.True(exists)

	s.Run("rejects a second record for the same cycle", func() {
		dup := *record
		dup.ID = id.AuditID{}
		s.ErrorIs(s.audits.Append(s.ctx, &dup), sentinel.ErrConflict)
		s.Equal(1, s.audits.Count())
	})

	s.Run("reads the record back", func() {
		found, err := s.audits.FindByCycle(s.ctx, cycleID)
		s.Require().NoError(err)
		s.Equal(record.ID, found.ID)
		s.Require().NotNil(found.Snapshot)
	})
}

func (s *CycleStoreSuite) TestTransactionRollback() {
	c := s.newCycle(1)
	s.Require().NoError(s.cycles.Create(s.ctx, c))
	injected := errors.New("audit write failed")

	err := s.tx.RunInTx(s.ctx, func(ctx context.Context, stores ports.Stores) error {
		done, err := stores.Cycles.CompleteIfActive(ctx, c.ID, s.completion())
		if err != nil {
			return err
		}
		next := s.newCycle(2)
		if err := stores.Cycles.Create(ctx, next); err != nil {
			return err
		}
		s.Equal(models.CycleStatusCompleted, done.Status)
		return injected
	})
	s.Require().ErrorIs(err, injected)

	current, err := s.cycles.FindCurrent(s.ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(c.ID, current.ID, "completion rolled back")
	s.Nil(current.SubmissionDate)

	history, err := s.cycles.ListBySubject(s.ctx, s.subject)
	s.Require().NoError(err)
	s.Len(history, 1, "next cycle rolled back")
}

func (s *CycleStoreSuite) TestTransactionRejectsCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.tx.RunInTx(ctx, func(context.Context, ports.Stores) error {
		called = true
		return nil
	})
	s.Error(err)
	s.False(called)
}
