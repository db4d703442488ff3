package models

import (
	"time"

	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
)

// RenewalYears is the fixed length of every cycle. It is not configurable.
const RenewalYears = 3

// AddRenewalPeriod advances t by exactly one renewal period in calendar years.
func AddRenewalPeriod(t time.Time) time.Time {
	return t.AddDate(RenewalYears, 0, 0)
}

// CycleStatus is the lifecycle state of a cycle.
type CycleStatus string

const (
	CycleStatusActive    CycleStatus = "active"
	CycleStatusCompleted CycleStatus = "completed"
	// CycleStatusArchived is applied by the external retention process only.
	CycleStatusArchived CycleStatus = "archived"
)

func (s CycleStatus) IsValid() bool {
	switch s {
	case CycleStatusActive, CycleStatusCompleted, CycleStatusArchived:
		return true
	}
	return false
}

func (s CycleStatus) String() string { return string(s) }

// Cycle is one fixed-duration compliance period for a subject.
//
// Invariants:
//   - CycleNumber >= 1 and unique per subject
//   - EndDate == AddRenewalPeriod(StartDate)
//   - at most one active cycle per subject (enforced by the store)
//   - SubmissionDate and ArchivedSnapshot are nil while active and set exactly
//     once, by the completion transition
//   - a completed cycle is never mutated again
type Cycle struct {
	ID                  id.CycleID           `json:"id"`
	SubjectID           id.SubjectID         `json:"subject_id"`
	CycleNumber         int                  `json:"cycle_number"`
	StartDate           time.Time            `json:"start_date"`
	EndDate             time.Time            `json:"end_date"`
	Status              CycleStatus          `json:"status"`
	SubmissionDate      *time.Time           `json:"submission_date,omitempty"`
	SubmissionReference string               `json:"submission_reference,omitempty"`
	CarryForward        *CarryForwardMetrics `json:"carry_forward_metrics,omitempty"`
	ArchivedSnapshot    *Snapshot            `json:"archived_snapshot,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

// NewCycle builds an unpersisted active cycle. The store assigns the ID.
func NewCycle(
	subjectID id.SubjectID,
	cycleNumber int,
	startDate time.Time,
	metrics CarryForwardMetrics,
	now time.Time,
) (*Cycle, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cycle requires a subject")
	}
	if cycleNumber < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cycle number must be positive")
	}
	if startDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cycle requires a start date")
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}
	carried := metrics
	return &Cycle{
		SubjectID:    subjectID,
		CycleNumber:  cycleNumber,
		StartDate:    startDate,
		EndDate:      AddRenewalPeriod(startDate),
		Status:       CycleStatusActive,
		CarryForward: &carried,
		CreatedAt:    now,
	}, nil
}

func (c *Cycle) IsActive() bool {
	return c.Status == CycleStatusActive
}

// CanComplete checks the completion transition without applying it.
func (c *Cycle) CanComplete(at time.Time) error {
	if !c.IsActive() {
		return dErrors.New(dErrors.CodeNoActiveCycle, "cycle is not active")
	}
	if at.Before(c.StartDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "cycle has not started yet")
	}
	return nil
}

// Completion is the single patch applied to an active cycle.
type Completion struct {
	SubmissionDate      time.Time
	SubmissionReference string
	Snapshot            *Snapshot
}

// ApplyCompletion transitions the cycle to completed. Callers must check
// CanComplete first; stores re-check the status under their own lock.
func (c *Cycle) ApplyCompletion(comp Completion) {
	submitted := comp.SubmissionDate
	c.Status = CycleStatusCompleted
	c.SubmissionDate = &submitted
	c.SubmissionReference = comp.SubmissionReference
	c.ArchivedSnapshot = comp.Snapshot
}

// Completed returns a copy with the completion applied and no embedded
// snapshot. It is the cycle record captured inside the snapshot itself.
func (c *Cycle) Completed(comp Completion) Cycle {
	out := *c
	out.ArchivedSnapshot = nil
	if c.CarryForward != nil {
		cf := *c.CarryForward
		out.CarryForward = &cf
	}
	comp.Snapshot = nil
	out.ApplyCompletion(comp)
	return out
}

// Clone returns a copy that shares nothing mutable with c except the
// archived snapshot, which is immutable once embedded.
func (c *Cycle) Clone() *Cycle {
	out := *c
	if c.SubmissionDate != nil {
		t := *c.SubmissionDate
		out.SubmissionDate = &t
	}
	if c.CarryForward != nil {
		cf := *c.CarryForward
		out.CarryForward = &cf
	}
	return &out
}
