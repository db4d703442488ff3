package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
	txcontext "revalidation/pkg/platform/tx"
)

// EventCycleSubmitted is the outbox event type written with every audit record.
const EventCycleSubmitted = "cycle.submitted"

// PostgresAudit writes audit records and, in the same transaction, an outbox
// row the outbox worker publishes to Kafka. The submission_audits table
// rejects UPDATE and DELETE with a trigger.
type PostgresAudit struct {
	db *sql.DB
}

func NewPostgresAudit(db *sql.DB) *PostgresAudit {
	return &PostgresAudit{db: db}
}

// SubmittedEvent is the outbox payload. It carries the digest, not the
// snapshot, so downstream consumers can verify without re-reading evidence.
type SubmittedEvent struct {
	AuditID             string `json:"audit_id"`
	CycleID             string `json:"cycle_id"`
	SubjectID           string `json:"subject_id"`
	SnapshotDigest      string `json:"snapshot_digest"`
	SubmissionReference string `json:"submission_reference,omitempty"`
	RequestID           string `json:"request_id,omitempty"`
	RecordedAt          string `json:"recorded_at"`
	Reconciled          bool   `json:"reconciled"`
}

func (s *PostgresAudit) Append(ctx context.Context, record *models.SubmissionAudit) error {
	if record.ID.IsNil() {
		record.ID = id.NewAuditID()
	}
	snapshot, err := record.Snapshot.Encode()
	if err != nil {
		return err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO submission_audits (
			id, cycle_id, subject_id, snapshot, snapshot_digest, submission_reference,
			client_ip, user_agent, client_summary, request_id, recorded_at, reconciled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(record.ID),
		uuid.UUID(record.CycleID),
		uuid.UUID(record.SubjectID),
		snapshot,
		record.SnapshotDigest,
		nullString(record.SubmissionReference),
		nullString(record.ClientIP),
		nullString(record.UserAgent),
		nullString(record.ClientSummary),
		nullString(record.RequestID),
		record.RecordedAt,
		record.Reconciled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert submission audit: %w", err)
	}

	payload, err := json.Marshal(SubmittedEvent{
		AuditID:             record.ID.String(),
		CycleID:             record.CycleID.String(),
		SubjectID:           record.SubjectID.String(),
		SnapshotDigest:      record.SnapshotDigest,
		SubmissionReference: record.SubmissionReference,
		RequestID:           record.RequestID,
		RecordedAt:          record.RecordedAt.Format(time.RFC3339Nano),
		Reconciled:          record.Reconciled,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		"cycle",
		record.CycleID.String(),
		EventCycleSubmitted,
		payload,
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresAudit) ExistsForCycle(ctx context.Context, cycleID id.CycleID) (bool, error) {
	var exists bool
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM submission_audits WHERE cycle_id = $1)`,
		uuid.UUID(cycleID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check audit exists: %w", err)
	}
	return exists, nil
}

// FindByCycle returns the audit record for a cycle.
func (s *PostgresAudit) FindByCycle(ctx context.Context, cycleID id.CycleID) (*models.SubmissionAudit, error) {
	var (
		auditID, cID, subjectID                    uuid.UUID
		snapshot                                   []byte
		ref, clientIP, userAgent, summary, request sql.NullString
		rec                                        models.SubmissionAudit
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, cycle_id, subject_id, snapshot, snapshot_digest, submission_reference,
			client_ip, user_agent, client_summary, request_id, recorded_at, reconciled
		FROM submission_audits
		WHERE cycle_id = $1
	`, uuid.UUID(cycleID)).Scan(
		&auditID, &cID, &subjectID, &snapshot, &rec.SnapshotDigest, &ref,
		&clientIP, &userAgent, &summary, &request, &rec.RecordedAt, &rec.Reconciled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find submission audit: %w", err)
	}
	snap, err := models.DecodeSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	rec.ID = id.AuditID(auditID)
	rec.CycleID = id.CycleID(cID)
	rec.SubjectID = id.SubjectID(subjectID)
	rec.Snapshot = snap
	rec.SubmissionReference = ref.String
	rec.ClientIP = clientIP.String
	rec.UserAgent = userAgent.String
	rec.ClientSummary = summary.String
	rec.RequestID = request.String
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}
