package period_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/database"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/period"
	"github.com/dukerupert/flatrota/internal/store"
)

type household struct {
	svc     *period.Service
	periods *store.PeriodStore
	task    *model.Task
	members []int64
}

func setupHousehold(t *testing.T) household {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := store.NewUserStore(db)
	flats := store.NewFlatStore(db)
	tasks := store.NewTaskStore(db)
	periods := store.NewPeriodStore(db)

	var members []int64
	for _, name := range []string{"a", "b", "c"} {
		u, err := users.Create(ctx, name+"@example.com", name)
		require.NoError(t, err)
		members = append(members, u.ID)
	}
	flat, err := flats.Create(ctx, "Flat 4B", members[0])
	require.NoError(t, err)
	for _, id := range members[1:] {
		_, err := flats.AddMember(ctx, flat.ID, id, store.RoleMember)
		require.NoError(t, err)
	}

	task, err := tasks.Create(ctx, &model.Task{
		FlatID:       flat.ID,
		Title:        "Bins",
		CadenceUnit:  cadence.Day,
		CadenceValue: 7,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC),
		Active:       true,
		Roster:       members,
		CreatorID:    members[0],
	})
	require.NoError(t, err)

	svc := period.NewService(tasks, periods, store.NewMembership(db),
		period.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return household{svc: svc, periods: periods, task: task, members: members}
}

func TestSQLiteGenerateScenario(t *testing.T) {
	h := setupHousehold(t)

	periods, err := h.svc.Generate(context.Background(), h.task.ID, h.members[0])
	require.NoError(t, err)
	require.Len(t, periods, 4)

	wantStarts := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
	}
	wantWho := []int64{h.members[0], h.members[1], h.members[2], h.members[0]}
	for i, p := range periods {
		require.True(t, p.StartDate.Equal(wantStarts[i]), "period %d start = %v", i, p.StartDate)
		require.Equal(t, wantWho[i], p.AssignedTo, "period %d", i)
		if i > 0 {
			require.True(t, periods[i-1].EndDate.Equal(p.StartDate))
		}
	}
	require.True(t, periods[3].EndDate.Equal(time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)))
}

func TestSQLiteConcurrentGenerateWritesOneBatch(t *testing.T) {
	h := setupHousehold(t)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Generate(ctx, h.task.ID, h.members[0])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, period.ErrAlreadyGenerated)
	}
	require.Equal(t, 1, wins)

	stored, err := h.periods.ListPeriods(ctx, h.task.ID)
	require.NoError(t, err)
	require.Len(t, stored, 4)
}

func TestSQLiteConcurrentCompleteHasOneWinner(t *testing.T) {
	h := setupHousehold(t)
	ctx := context.Background()

	periods, err := h.svc.Generate(ctx, h.task.ID, h.members[0])
	require.NoError(t, err)
	target := periods[0].ID

	var wg sync.WaitGroup
	errs := make([]error, len(h.members))
	for i, member := range h.members {
		wg.Add(1)
		go func(i int, member int64) {
			defer wg.Done()
			_, errs[i] = h.svc.Complete(ctx, target, member)
		}(i, member)
	}
	wg.Wait()

	var winner int64
	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			winner = h.members[i]
			continue
		}
		require.ErrorIs(t, err, period.ErrConflict)
	}
	require.Equal(t, 1, wins)

	p, err := h.periods.GetPeriod(ctx, target)
	require.NoError(t, err)
	require.NotNil(t, p.CompletedBy)
	require.Equal(t, winner, *p.CompletedBy)
}

func TestSQLiteReassignAndCompleteFlow(t *testing.T) {
	h := setupHousehold(t)
	ctx := context.Background()

	periods, err := h.svc.Generate(ctx, h.task.ID, h.members[0])
	require.NoError(t, err)

	p, err := h.svc.Reassign(ctx, periods[0].ID, h.members[1], h.members[2])
	require.NoError(t, err)
	require.Equal(t, h.members[2], p.AssignedTo)

	p, err = h.svc.Complete(ctx, periods[0].ID, h.members[2])
	require.NoError(t, err)
	require.Equal(t, model.PeriodCompleted, p.Status())

	_, err = h.svc.Reassign(ctx, periods[0].ID, h.members[1], h.members[0])
	require.ErrorIs(t, err, period.ErrConflict)

	_, err = h.svc.Reassign(ctx, periods[1].ID, h.members[1], 9999)
	require.ErrorIs(t, err, period.ErrInvalidAssignee)
}

func TestSQLiteResetThenRegenerate(t *testing.T) {
	h := setupHousehold(t)
	ctx := context.Background()

	_, err := h.svc.Generate(ctx, h.task.ID, h.members[0])
	require.NoError(t, err)

	_, err = h.svc.Reset(ctx, h.task.ID, h.members[1])
	require.ErrorIs(t, err, period.ErrUnauthorized)

	removed, err := h.svc.Reset(ctx, h.task.ID, h.members[0])
	require.NoError(t, err)
	require.Equal(t, int64(4), removed)

	periods, err := h.svc.Generate(ctx, h.task.ID, h.members[0])
	require.NoError(t, err)
	require.Len(t, periods, 4)
}
