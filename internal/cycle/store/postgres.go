package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/sentinel"
	txcontext "revalidation/pkg/platform/tx"
)

const uniqueViolation = "23505"

const cycleColumns = `id, subject_id, cycle_number, start_date, end_date, status,
	submission_date, submission_reference, carry_forward_metrics, archived_snapshot, created_at`

// PostgresStore persists cycles in PostgreSQL. Uniqueness of the active cycle
// and of cycle numbers is enforced by the schema (see migrations).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, cycle *models.Cycle) error {
	if cycle.ID.IsNil() {
		cycle.ID = id.NewCycleID()
	}
	metrics, err := json.Marshal(cycle.CarryForward)
	if err != nil {
		return fmt.Errorf("marshal carry-forward metrics: %w", err)
	}
	var archived []byte
	if cycle.ArchivedSnapshot != nil {
		if archived, err = cycle.ArchivedSnapshot.Encode(); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO cycles (` + cycleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(cycle.ID),
		uuid.UUID(cycle.SubjectID),
		cycle.CycleNumber,
		cycle.StartDate,
		cycle.EndDate,
		string(cycle.Status),
		cycle.SubmissionDate,
		nullString(cycle.SubmissionReference),
		metrics,
		archived,
		cycle.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, cycleID id.CycleID) (*models.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE id = $1`
	return s.queryOne(ctx, query, uuid.UUID(cycleID))
}

func (s *PostgresStore) FindCurrent(ctx context.Context, subjectID id.SubjectID) (*models.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE subject_id = $1 AND status = 'active'`
	return s.queryOne(ctx, query, uuid.UUID(subjectID))
}

func (s *PostgresStore) FindLast(ctx context.Context, subjectID id.SubjectID) (*models.Cycle, error) {
	query := `
		SELECT ` + cycleColumns + ` FROM cycles
		WHERE subject_id = $1
		ORDER BY cycle_number DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, uuid.UUID(subjectID))
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE subject_id = $1 ORDER BY cycle_number ASC`
	return s.queryMany(ctx, query, uuid.UUID(subjectID))
}

// CompleteIfActive is a conditional update: the WHERE clause re-checks the
// status under the row lock, so of two concurrent completions only one
// matches a row.
func (s *PostgresStore) CompleteIfActive(ctx context.Context, cycleID id.CycleID, completion models.Completion) (*models.Cycle, error) {
	var archived []byte
	if completion.Snapshot != nil {
		var err error
		if archived, err = completion.Snapshot.Encode(); err != nil {
			return nil, err
		}
	}
	query := `
		UPDATE cycles
		SET status = 'completed', submission_date = $2, submission_reference = $3, archived_snapshot = $4
		WHERE id = $1 AND status = 'active'
		RETURNING ` + cycleColumns
	cycle, err := s.queryOne(ctx, query,
		uuid.UUID(cycleID),
		completion.SubmissionDate,
		nullString(completion.SubmissionReference),
		archived,
	)
	if err == nil {
		return cycle, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// Distinguish a missing cycle from one that is no longer active.
	var exists bool
	if err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cycles WHERE id = $1)`, uuid.UUID(cycleID),
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check cycle exists: %w", err)
	}
	if exists {
		return nil, sentinel.ErrInvalidState
	}
	return nil, sentinel.ErrNotFound
}

func (s *PostgresStore) FindArchivedSnapshot(ctx context.Context, cycleID id.CycleID) (*models.Snapshot, error) {
	var raw []byte
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT archived_snapshot FROM cycles WHERE id = $1 AND status <> 'active'`,
		uuid.UUID(cycleID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && raw == nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find archived snapshot: %w", err)
	}
	return models.DecodeSnapshot(raw)
}

func (s *PostgresStore) ListCompleted(ctx context.Context) ([]*models.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE status <> 'active' ORDER BY created_at ASC`
	return s.queryMany(ctx, query)
}

// MarkArchived applies the retention label to a completed cycle. The cycle
// service never calls it; the retention tooling does. Anything other than a
// completed cycle, including an unknown ID, is ErrInvalidState.
func (s *PostgresStore) MarkArchived(ctx context.Context, cycleID id.CycleID) error {
	res, err := s.exec(ctx).ExecContext(ctx,
		`UPDATE cycles SET status = 'archived' WHERE id = $1 AND status = 'completed'`,
		uuid.UUID(cycleID),
	)
	if err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark archived rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*models.Cycle, error) {
	row := s.exec(ctx).QueryRowContext(ctx, query, args...)
	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cycle: %w", err)
	}
	return cycle, nil
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...any) ([]*models.Cycle, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []*models.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*models.Cycle, error) {
	var (
		cycleID, subjectID uuid.UUID
		status             string
		submissionDate     sql.NullTime
		submissionRef      sql.NullString
		metrics, archived  []byte
		c                  models.Cycle
	)
	if err := row.Scan(
		&cycleID, &subjectID, &c.CycleNumber, &c.StartDate, &c.EndDate, &status,
		&submissionDate, &submissionRef, &metrics, &archived, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CycleID(cycleID)
	c.SubjectID = id.SubjectID(subjectID)
	c.Status = models.CycleStatus(status)
	c.StartDate = c.StartDate.UTC()
	c.EndDate = c.EndDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if submissionDate.Valid {
		t := submissionDate.Time.UTC()
		c.SubmissionDate = &t
	}
	c.SubmissionReference = submissionRef.String
	if len(metrics) > 0 && string(metrics) != "null" {
		var cf models.CarryForwardMetrics
		if err := json.Unmarshal(metrics, &cf); err != nil {
			return nil, fmt.Errorf("unmarshal carry-forward metrics: %w", err)
		}
		c.CarryForward = &cf
	}
	if archived != nil {
		snap, err := models.DecodeSnapshot(archived)
		if err != nil {
			return nil, err
		}
		c.ArchivedSnapshot = snap
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
