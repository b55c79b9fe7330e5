package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/flatrota/internal/cadence"
)

type Task struct {
	ID           int64        `json:"id"`
	FlatID       int64        `json:"flat_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	CadenceUnit  cadence.Unit `json:"cadence_unit"`
	CadenceValue int          `json:"cadence_value"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Active       bool         `json:"active"`
	Roster       []int64      `json:"roster"`
	CreatorID    int64        `json:"creator_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks the invariants a task must hold before it is stored.
// An empty roster is allowed; generation treats it as a no-op.
func (t *Task) Validate() error {
	if !t.CadenceUnit.Valid() {
		return fmt.Errorf("%w: %q", cadence.ErrUnknownUnit, string(t.CadenceUnit))
	}
	if t.CadenceValue <= 0 {
		return errors.New("cadence value must be positive")
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if t.EndDate.Before(t.StartDate) {
		return errors.New("end date is before start date")
	}
	seen := make(map[int64]struct{}, len(t.Roster))
	for _, id := range t.Roster {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("member %d appears twice in roster", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// OnRoster reports whether memberID is part of the task's rotation.
func (t *Task) OnRoster(memberID int64) bool {
	for _, id := range t.Roster {
		if id == memberID {
			return true
		}
	}
	return false
}
