package models

import (
	"time"

	id "revalidation/pkg/domain"
)

// SubmissionAudit is the append-only compliance record written with every
// completion. It is independent of the cycle record: later changes to the cycle
// (such as the external archival label) never touch it.
type SubmissionAudit struct {
	ID                  id.AuditID   `json:"id"`
	CycleID             id.CycleID   `json:"cycle_id"`
	SubjectID           id.SubjectID `json:"subject_id"`
	Snapshot            *Snapshot    `json:"snapshot"`
	SnapshotDigest      string       `json:"snapshot_digest"`
	SubmissionReference string       `json:"submission_reference,omitempty"`
	ClientIP            string       `json:"client_ip,omitempty"`
	UserAgent           string       `json:"user_agent,omitempty"`
	ClientSummary       string       `json:"client_summary,omitempty"`
	RequestID           string       `json:"request_id,omitempty"`
	RecordedAt          time.Time    `json:"recorded_at"`
	// Reconciled marks records written by the reconciliation sweep rather
	// than by the completion itself.
	Reconciled bool `json:"reconciled"`
}
