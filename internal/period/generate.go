package period

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/rotation"
	"github.com/dukerupert/flatrota/internal/store"
)

// MaxPeriods bounds a single generation run.
const MaxPeriods = 30

// Plan computes the pending periods for a task without persisting them.
// Windows are chained from the task's start date and assigned round-robin
// over the roster; planning stops once a window's end reaches the task's end
// date or max periods have been planned. max is capped at MaxPeriods. An
// empty roster plans nothing.
func Plan(task *model.Task, max int) ([]model.Period, error) {
	max = min(max, MaxPeriods)
	if len(task.Roster) == 0 || max <= 0 {
		return nil, nil
	}

	assignees, err := rotation.Sequence(task.Roster, max)
	if err != nil {
		return nil, err
	}
	periods := make([]model.Period, 0, max)
	anchor := task.StartDate
	for i := 0; i < max; i++ {
		start, end, err := cadence.Window(task.CadenceUnit, task.CadenceValue, anchor, 0)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		periods = append(periods, model.Period{
			TaskID:     task.ID,
			StartDate:  start,
			EndDate:    end,
			AssignedTo: assignees[i],
		})
		if !end.Before(task.EndDate) {
			break
		}
		anchor = end
	}
	return periods, nil
}

// Generate creates the task's periods. It is allowed once per task: a task
// that already has periods fails with ErrAlreadyGenerated, including when a
// concurrent call wins the race between the check and the insert.
func (s *Service) Generate(ctx context.Context, taskID, actor int64) (periods []model.Period, err error) {
	defer func() { s.record("generate", err) }()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, actor, task); err != nil {
		return nil, err
	}

	existing, err := s.periods.ListPeriods(ctx, taskID)
	if err != nil {
		return nil, storageErr("list periods", err)
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyGenerated
	}

	planned, err := Plan(task, MaxPeriods)
	if err != nil {
		return nil, err
	}
	if len(planned) == 0 {
		s.logger.Info("task has empty roster, nothing generated", "task_id", taskID)
		return []model.Period{}, nil
	}

	batch := model.PeriodBatch{
		ID:        s.batchID(),
		TaskID:    taskID,
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
	}
	saved, err := s.periods.InsertBatch(ctx, batch, planned)
	if errors.Is(err, store.ErrBatchExists) {
		return nil, ErrAlreadyGenerated
	}
	if err != nil {
		return nil, storageErr("insert batch", err)
	}

	s.metrics.PeriodsGenerated(len(saved))
	s.logger.Info("periods generated",
		"task_id", taskID,
		"batch_id", batch.ID,
		"count", len(saved),
		"actor", actor,
	)
	return saved, nil
}
