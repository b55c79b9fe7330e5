package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/flatrota/internal/model"
)

// ErrBatchExists is returned by InsertBatch when the task already has periods.
var ErrBatchExists = errors.New("period batch already exists for task")

type PeriodStore struct {
	db *sql.DB
}

func NewPeriodStore(db *sql.DB) *PeriodStore {
	return &PeriodStore{db: db}
}

func scanPeriod(scanner interface{ Scan(...any) error }) (*model.Period, error) {
	var p model.Period
	var completedBy sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.TaskID, &p.BatchID, &p.StartDate, &p.EndDate,
		&p.AssignedTo, &completedBy, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedBy.Valid {
		p.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

const periodCols = `id, task_id, batch_id, start_date, end_date, assigned_to, completed_by, completed_at`

func (s *PeriodStore) ListPeriods(ctx context.Context, taskID int64) ([]model.Period, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+periodCols+` FROM periods WHERE task_id = ? ORDER BY start_date ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()
	return collectPeriods(rows)
}

// ListByAssignee returns periods assigned to memberID across all tasks,
// optionally only the pending ones.
func (s *PeriodStore) ListByAssignee(ctx context.Context, memberID int64, pendingOnly bool) ([]model.Period, error) {
	query := `SELECT ` + periodCols + ` FROM periods WHERE assigned_to = ?`
	if pendingOnly {
		query += ` AND completed_by IS NULL`
	}
	query += ` ORDER BY start_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list periods by assignee: %w", err)
	}
	defer rows.Close()
	return collectPeriods(rows)
}

func collectPeriods(rows *sql.Rows) ([]model.Period, error) {
	periods := []model.Period{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

func (s *PeriodStore) GetPeriod(ctx context.Context, id int64) (*model.Period, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+periodCols+` FROM periods WHERE id = ?`, id)
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	return p, nil
}

// InsertBatch stores a whole generation run in one transaction. The batch row
// is unique per task, so of two concurrent callers at most one commits; the
// other gets ErrBatchExists and nothing it planned is written.
func (s *PeriodStore) InsertBatch(ctx context.Context, batch model.PeriodBatch, periods []model.Period) ([]model.Period, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM periods WHERE task_id = ?`, batch.TaskID,
	).Scan(&existing); err != nil {
		return nil, fmt.Errorf("count periods: %w", err)
	}
	if existing > 0 {
		return nil, ErrBatchExists
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO period_batches (id, task_id, created_by, created_at) VALUES (?, ?, ?, ?)`,
		batch.ID, batch.TaskID, batch.CreatedBy, batch.CreatedAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBatchExists
		}
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO periods (task_id, batch_id, start_date, end_date, assigned_to) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare period insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range periods {
		if _, err := stmt.ExecContext(ctx,
			batch.TaskID, batch.ID, p.StartDate.UTC(), p.EndDate.UTC(), p.AssignedTo,
		); err != nil {
			return nil, fmt.Errorf("insert period: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ListPeriods(ctx, batch.TaskID)
}

func (s *PeriodStore) GetBatch(ctx context.Context, taskID int64) (*model.PeriodBatch, error) {
	var b model.PeriodBatch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, created_by, created_at FROM period_batches WHERE task_id = ?`, taskID,
	).Scan(&b.ID, &b.TaskID, &b.CreatedBy, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// CompletePeriod marks a pending period completed. It reports false when no
// pending period with that id exists, which includes losing a race to another
// completer.
func (s *PeriodStore) CompletePeriod(ctx context.Context, id, completedBy int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE periods SET completed_by = ?, completed_at = ? WHERE id = ? AND completed_by IS NULL`,
		completedBy, at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("complete period: %w", err)
	}
	return affectedOne(result)
}

// ReassignPeriod changes the assignee of a pending period. It reports false
// when the period is missing or already completed.
func (s *PeriodStore) ReassignPeriod(ctx context.Context, id, assignedTo int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE periods SET assigned_to = ? WHERE id = ? AND completed_by IS NULL`,
		assignedTo, id,
	)
	if err != nil {
		return false, fmt.Errorf("reassign period: %w", err)
	}
	return affectedOne(result)
}

// DeleteBatch removes every period of a task and its batch row so the task
// can be generated again. It returns the number of periods removed.
func (s *PeriodStore) DeleteBatch(ctx context.Context, taskID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM periods WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete periods: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM period_batches WHERE task_id = ?`, taskID); err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
