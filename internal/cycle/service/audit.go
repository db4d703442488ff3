package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/ports"
	"revalidation/pkg/requestcontext"
)

// auditRecorder writes the submission audit record. It is only reachable from
// the completion and reconciliation paths, always inside their transaction.
type auditRecorder struct {
	logger *slog.Logger
}

func newAuditRecorder(logger *slog.Logger) *auditRecorder {
	return &auditRecorder{logger: logger}
}

// record appends the audit record for a completed cycle. Client metadata
// comes from the request context at the moment of the call.
func (r *auditRecorder) record(
	ctx context.Context,
	audits ports.AuditStore,
	cycle *models.Cycle,
	at time.Time,
	reconciled bool,
) (*models.SubmissionAudit, error) {
	digest, err := cycle.ArchivedSnapshot.Digest()
	if err != nil {
		return nil, err
	}
	userAgent := requestcontext.UserAgent(ctx)
	rec := &models.SubmissionAudit{
		CycleID:             cycle.ID,
		SubjectID:           cycle.SubjectID,
		Snapshot:            cycle.ArchivedSnapshot,
		SnapshotDigest:      digest,
		SubmissionReference: cycle.SubmissionReference,
		ClientIP:            requestcontext.ClientIP(ctx),
		UserAgent:           userAgent,
		ClientSummary:       summarizeClient(userAgent),
		RequestID:           requestcontext.RequestID(ctx),
		RecordedAt:          at,
		Reconciled:          reconciled,
	}
	if err := audits.Append(ctx, rec); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "submission audit recorded",
		"audit_id", rec.ID,
		"cycle_id", rec.CycleID,
		"subject_id", rec.SubjectID,
		"snapshot_digest", digest,
		"reconciled", reconciled,
		"request_id", rec.RequestID,
	)
	return rec, nil
}

// summarizeClient reduces a raw User-Agent to "Browser version on OS".
func summarizeClient(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	parts := []string{}
	if name != "" {
		if version != "" {
			name += " " + version
		}
		parts = append(parts, name)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, "on "+os)
	}
	if ua.Bot() {
		parts = append(parts, "(bot)")
	} else if ua.Mobile() {
		parts = append(parts, "(mobile)")
	}
	return strings.Join(parts, " ")
}
