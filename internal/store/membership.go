package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/flatrota/internal/model"
)

// Membership answers the authorization questions asked about a task. It reads
// flat ownership and membership; it never changes them.
type Membership struct {
	db *sql.DB
}

func NewMembership(db *sql.DB) *Membership {
	return &Membership{db: db}
}

// IsTaskOwnerOrFlatOwner reports whether actor created the task or owns its flat.
func (m *Membership) IsTaskOwnerOrFlatOwner(ctx context.Context, actor int64, task *model.Task) (bool, error) {
	if task.CreatorID == actor {
		return true, nil
	}
	var ownerID int64
	err := m.db.QueryRowContext(ctx, `SELECT owner_id FROM flats WHERE id = ?`, task.FlatID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flat owner: %w", err)
	}
	return ownerID == actor, nil
}

// IsRosterMember reports whether actor is on the task's roster or is a
// current member of the flat the task belongs to.
func (m *Membership) IsRosterMember(ctx context.Context, actor int64, task *model.Task) (bool, error) {
	if task.OnRoster(actor) {
		return true, nil
	}
	var one int
	err := m.db.QueryRowContext(ctx,
		`SELECT 1 FROM flat_members WHERE flat_id = ? AND user_id = ?`,
		task.FlatID, actor,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flat member: %w", err)
	}
	return true, nil
}
