package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/database"
	"github.com/dukerupert/flatrota/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type seeded struct {
	users   []int64
	flat    *model.Flat
	task    *model.Task
	tasks   *TaskStore
	periods *PeriodStore
	flats   *FlatStore
}

// seedHousehold creates three users in one flat owned by the first, and a
// weekly task rotating over all three.
func seedHousehold(t *testing.T, db *sql.DB) seeded {
	t.Helper()
	ctx := context.Background()
	us := NewUserStore(db)
	fs := NewFlatStore(db)
	ts := NewTaskStore(db)

	var ids []int64
	for _, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
		u, err := us.Create(ctx, email, email[:len(email)-12])
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		ids = append(ids, u.ID)
	}
	flat, err := fs.Create(ctx, "Flat 4B", ids[0])
	if err != nil {
		t.Fatalf("create flat: %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := fs.AddMember(ctx, flat.ID, id, RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	task, err := ts.Create(ctx, &model.Task{
		FlatID:       flat.ID,
		Title:        "Bathroom",
		CadenceUnit:  cadence.Week,
		CadenceValue: 1,
		StartDate:    day(2024, 3, 1),
		EndDate:      day(2024, 4, 1),
		Active:       true,
		Roster:       ids,
		CreatorID:    ids[0],
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return seeded{users: ids, flat: flat, task: task, tasks: ts, periods: NewPeriodStore(db), flats: fs}
}
