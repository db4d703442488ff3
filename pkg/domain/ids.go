// Package domain holds the typed identifiers shared across modules.
//
// Each ID is a distinct named UUID type so a CycleID can never be passed where a
// SubjectID is expected. Construct IDs from external input only via the Parse
// functions, which reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "revalidation/pkg/domain-errors"
)

// SubjectID identifies the professional who owns a sequence of cycles.
type SubjectID uuid.UUID

// CycleID identifies one persisted compliance cycle.
type CycleID uuid.UUID

// AuditID identifies one submission audit record.
type AuditID uuid.UUID

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

// ParseSubjectID validates external input as a SubjectID.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID("subject id", s)
	return SubjectID(u), err
}

// ParseCycleID validates external input as a CycleID.
func ParseCycleID(s string) (CycleID, error) {
	u, err := parseUUID("cycle id", s)
	return CycleID(u), err
}

// ParseAuditID validates external input as an AuditID.
func ParseAuditID(s string) (AuditID, error) {
	u, err := parseUUID("audit id", s)
	return AuditID(u), err
}

// NewCycleID returns a random CycleID. Only stores should call this.
func NewCycleID() CycleID { return CycleID(uuid.New()) }

// NewAuditID returns a random AuditID.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id SubjectID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id CycleID) String() string { return uuid.UUID(id).String() }
func (id CycleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AuditID) String() string { return uuid.UUID(id).String() }
func (id AuditID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id SubjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *SubjectID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id CycleID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CycleID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AuditID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AuditID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
