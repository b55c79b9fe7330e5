package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var unit string
	err := scanner.Scan(
		&t.ID, &t.FlatID, &t.Title, &t.Description, &unit, &t.CadenceValue,
		&t.StartDate, &t.EndDate, &t.Active, &t.CreatorID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CadenceUnit = cadence.Unit(unit)
	return &t, nil
}

const taskCols = `id, flat_id, title, description, cadence_unit, cadence_value, start_date, end_date, active, creator_id, created_at, updated_at`

// Create validates and inserts a task together with its ordered roster.
func (s *TaskStore) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (flat_id, title, description, cadence_unit, cadence_value, start_date, end_date, active, creator_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FlatID, t.Title, t.Description, string(t.CadenceUnit), t.CadenceValue,
		t.StartDate.UTC(), t.EndDate.UTC(), t.Active, t.CreatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for pos, memberID := range t.Roster {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_roster (task_id, member_id, position) VALUES (?, ?, ?)`,
			id, memberID, pos,
		); err != nil {
			return nil, fmt.Errorf("insert roster member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask returns the task with its roster in rotation order, or nil if it
// does not exist.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	t.Roster, err = loadRoster(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskStore) ListByFlat(ctx context.Context, flatID int64) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE flat_id = ? ORDER BY start_date ASC, title ASC`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	// Rosters are loaded after the task cursor is closed; the pool holds one connection.
	for i := range tasks {
		tasks[i].Roster, err = loadRoster(ctx, s.db, tasks[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *TaskStore) SetActive(ctx context.Context, id int64, active bool) (*model.Task, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return nil, fmt.Errorf("update task active: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func loadRoster(ctx context.Context, q querier, taskID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT member_id FROM task_roster WHERE task_id = ? ORDER BY position ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	roster := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		roster = append(roster, id)
	}
	return roster, rows.Err()
}
