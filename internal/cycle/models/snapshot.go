package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Snapshot is the complete point-in-time aggregation of a subject's evidence
// for one cycle, captured at completion. Once embedded in a completed cycle it
// is read-only.
type Snapshot struct {
	Cycle                 Cycle                       `json:"cycle"`
	PracticeHours         []PracticeHoursEntry        `json:"practice_hours"`
	CPD                   []CPDEntry                  `json:"cpd"`
	Feedback              []FeedbackEntry             `json:"feedback"`
	ReflectiveAccounts    []ReflectiveAccountEntry    `json:"reflective_accounts"`
	ReflectiveDiscussions []ReflectiveDiscussionEntry `json:"reflective_discussions"`
	Declarations          []DeclarationEntry          `json:"declarations"`
	Confirmations         []ConfirmationEntry         `json:"confirmations"`
	Training              []TrainingEntry             `json:"training"`
	Profile               *Profile                    `json:"profile,omitempty"`
	CapturedAt            time.Time                   `json:"captured_at"`
	Completeness          Completeness                `json:"completeness"`
}

// Completeness records which reads degraded to empty while the snapshot was
// built, so an empty category can be told apart from a failed one.
type Completeness struct {
	Complete bool               `json:"complete"`
	Degraded []DegradedCategory `json:"degraded,omitempty"`
}

// DegradedCategory names a read that failed and the reason it failed.
type DegradedCategory struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

// PartialSnapshotWarning is a non-fatal signal that the snapshot is missing
// one or more categories. It implements error so callers can errors.As it.
type PartialSnapshotWarning struct {
	Degraded []DegradedCategory
}

func (w *PartialSnapshotWarning) Error() string {
	names := make([]string, 0, len(w.Degraded))
	for _, d := range w.Degraded {
		names = append(names, string(d.Category))
	}
	return "partial snapshot: degraded categories " + strings.Join(names, ", ")
}

// PartialWarning returns a warning when any category degraded, otherwise nil.
func (s *Snapshot) PartialWarning() *PartialSnapshotWarning {
	if s == nil || s.Completeness.Complete {
		return nil
	}
	return &PartialSnapshotWarning{Degraded: append([]DegradedCategory(nil), s.Completeness.Degraded...)}
}

// EntryCount totals the entries across all evidence categories.
func (s *Snapshot) EntryCount() int {
	return len(s.PracticeHours) + len(s.CPD) + len(s.Feedback) +
		len(s.ReflectiveAccounts) + len(s.ReflectiveDiscussions) +
		len(s.Declarations) + len(s.Confirmations) + len(s.Training)
}

// Encode serializes the snapshot for the persistence boundary.
func (s *Snapshot) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a snapshot written by Encode.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Digest returns the hex SHA-256 of the encoded snapshot.
func (s *Snapshot) Digest() (string, error) {
	b, err := s.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
