package period

import (
	"context"

	"github.com/dukerupert/flatrota/internal/model"
)

// List returns the task's periods ordered by start date.
func (s *Service) List(ctx context.Context, taskID, actor int64) (periods []model.Period, err error) {
	defer func() { s.record("list", err) }()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, task); err != nil {
		return nil, err
	}
	periods, err = s.periods.ListPeriods(ctx, taskID)
	if err != nil {
		return nil, storageErr("list periods", err)
	}
	return periods, nil
}

// ListAssigned returns the periods assigned to actor across every task,
// optionally only the pending ones.
func (s *Service) ListAssigned(ctx context.Context, actor int64, pendingOnly bool) (periods []model.Period, err error) {
	defer func() { s.record("list_assigned", err) }()

	periods, err = s.periods.ListByAssignee(ctx, actor, pendingOnly)
	if err != nil {
		return nil, storageErr("list assigned periods", err)
	}
	return periods, nil
}

// Batch describes the generation run behind a task's periods. A task that
// has not been generated yet fails with ErrNotFound.
func (s *Service) Batch(ctx context.Context, taskID, actor int64) (batch *model.PeriodBatch, err error) {
	defer func() { s.record("batch", err) }()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, task); err != nil {
		return nil, err
	}
	batch, err = s.periods.GetBatch(ctx, taskID)
	if err != nil {
		return nil, storageErr("get batch", err)
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	return batch, nil
}

// Complete marks a pending period as done by actor. Completion is one-way;
// a second call fails with ErrConflict and leaves the first completion intact.
func (s *Service) Complete(ctx context.Context, periodID, actor int64) (p *model.Period, err error) {
	defer func() { s.record("complete", err) }()

	p, err = s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, task); err != nil {
		return nil, err
	}
	if p.Completed() {
		return nil, ErrConflict
	}

	ok, err := s.periods.CompletePeriod(ctx, periodID, actor, s.now())
	if err != nil {
		return nil, storageErr("complete period", err)
	}
	if !ok {
		return nil, s.lostUpdate(ctx, periodID)
	}

	p, err = s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("period completed", "period_id", periodID, "task_id", p.TaskID, "actor", actor)
	return p, nil
}

// Reassign hands a pending period to another member of the task's roster.
// Other periods keep their assignees.
func (s *Service) Reassign(ctx context.Context, periodID, actor, newAssignee int64) (p *model.Period, err error) {
	defer func() { s.record("reassign", err) }()

	p, err = s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, task); err != nil {
		return nil, err
	}
	if p.Completed() {
		return nil, ErrConflict
	}
	if !task.OnRoster(newAssignee) {
		return nil, ErrInvalidAssignee
	}

	previous := p.AssignedTo
	ok, err := s.periods.ReassignPeriod(ctx, periodID, newAssignee)
	if err != nil {
		return nil, storageErr("reassign period", err)
	}
	if !ok {
		return nil, s.lostUpdate(ctx, periodID)
	}

	p, err = s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("period reassigned",
		"period_id", periodID,
		"task_id", p.TaskID,
		"from", previous,
		"to", newAssignee,
		"actor", actor,
	)
	return p, nil
}

// Reset discards every period of a task so it can be generated again, for
// example after its cadence changed. Only the task creator or flat owner may
// reset. It returns the number of periods removed.
func (s *Service) Reset(ctx context.Context, taskID, actor int64) (removed int64, err error) {
	defer func() { s.record("reset", err) }()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if err := s.requireOwner(ctx, actor, task); err != nil {
		return 0, err
	}
	removed, err = s.periods.DeleteBatch(ctx, taskID)
	if err != nil {
		return 0, storageErr("delete batch", err)
	}
	s.logger.Info("periods reset", "task_id", taskID, "removed", removed, "actor", actor)
	return removed, nil
}

// lostUpdate explains a conditional update that matched no row: the period
// vanished or another caller completed it first.
func (s *Service) lostUpdate(ctx context.Context, periodID int64) error {
	p, err := s.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return storageErr("get period", err)
	}
	if p == nil {
		return ErrNotFound
	}
	return ErrConflict
}
