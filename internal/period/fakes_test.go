package period

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/store"
)

type fakeTasks struct {
	tasks map[int64]*model.Task
	err   error
}

func (f *fakeTasks) GetTask(_ context.Context, id int64) (*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// fakeStore mimics the conditional-update semantics of the SQLite store.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	periods map[int64]*model.Period
	batches map[int64]model.PeriodBatch

	insertErr error
	listErr   error
	// staleGet makes GetPeriod report a pending copy even after completion,
	// simulating a read that raced with another completer.
	staleGet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		periods: make(map[int64]*model.Period),
		batches: make(map[int64]model.PeriodBatch),
	}
}

func (f *fakeStore) ListPeriods(_ context.Context, taskID int64) ([]model.Period, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Period{}
	for _, p := range f.periods {
		if p.TaskID == taskID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) ListByAssignee(_ context.Context, memberID int64, pendingOnly bool) ([]model.Period, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Period{}
	for _, p := range f.periods {
		if p.AssignedTo != memberID || (pendingOnly && p.Completed()) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) GetBatch(_ context.Context, taskID int64) (*model.PeriodBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[taskID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) InsertBatch(ctx context.Context, batch model.PeriodBatch, periods []model.Period) ([]model.Period, error) {
	f.mu.Lock()
	if f.insertErr != nil {
		f.mu.Unlock()
		return nil, f.insertErr
	}
	if _, ok := f.batches[batch.TaskID]; ok {
		f.mu.Unlock()
		return nil, store.ErrBatchExists
	}
	f.batches[batch.TaskID] = batch
	for _, p := range periods {
		f.nextID++
		cp := p
		cp.ID = f.nextID
		cp.BatchID = batch.ID
		f.periods[cp.ID] = &cp
	}
	f.mu.Unlock()
	return f.ListPeriods(ctx, batch.TaskID)
}

func (f *fakeStore) GetPeriod(_ context.Context, id int64) (*model.Period, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.periods[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	if f.staleGet {
		cp.CompletedBy = nil
		cp.CompletedAt = nil
	}
	return &cp, nil
}

func (f *fakeStore) CompletePeriod(_ context.Context, id, completedBy int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.periods[id]
	if !ok || p.CompletedBy != nil {
		return false, nil
	}
	by := completedBy
	p.CompletedBy = &by
	p.CompletedAt = &at
	return true, nil
}

func (f *fakeStore) ReassignPeriod(_ context.Context, id, assignedTo int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.periods[id]
	if !ok || p.CompletedBy != nil {
		return false, nil
	}
	p.AssignedTo = assignedTo
	return true, nil
}

func (f *fakeStore) DeleteBatch(_ context.Context, taskID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.periods {
		if p.TaskID == taskID {
			delete(f.periods, id)
			n++
		}
	}
	delete(f.batches, taskID)
	return n, nil
}

// fakeAuth grants ownership to the task creator and membership to the roster
// plus any extra flat members.
type fakeAuth struct {
	flatMembers map[int64]bool
	err         error
}

func (f *fakeAuth) IsTaskOwnerOrFlatOwner(_ context.Context, actor int64, task *model.Task) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return task.CreatorID == actor, nil
}

func (f *fakeAuth) IsRosterMember(_ context.Context, actor int64, task *model.Task) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return task.OnRoster(actor) || f.flatMembers[actor], nil
}

type recordingMetrics struct {
	mu        sync.Mutex
	generated int
	ops       map[string]int
}

func (m *recordingMetrics) PeriodsGenerated(n int) {
	m.mu.Lock()
	m.generated += n
	m.mu.Unlock()
}

func (m *recordingMetrics) Operation(op, result string) {
	m.mu.Lock()
	if m.ops == nil {
		m.ops = make(map[string]int)
	}
	m.ops[op+"/"+result]++
	m.mu.Unlock()
}

var errDiskFull = errors.New("disk full")
