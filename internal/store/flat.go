package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/flatrota/internal/model"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type FlatStore struct {
	db *sql.DB
}

func NewFlatStore(db *sql.DB) *FlatStore {
	return &FlatStore{db: db}
}

func scanFlat(scanner interface{ Scan(...any) error }) (*model.Flat, error) {
	var f model.Flat
	err := scanner.Scan(&f.ID, &f.Name, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFlatMember(scanner interface{ Scan(...any) error }) (*model.FlatMember, error) {
	var m model.FlatMember
	err := scanner.Scan(&m.ID, &m.FlatID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const flatCols = `id, name, owner_id, created_at, updated_at`
const flatMemberCols = `id, flat_id, user_id, role, created_at`

// Create inserts a flat and enrolls its owner as a member.
func (s *FlatStore) Create(ctx context.Context, name string, ownerID int64) (*model.Flat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO flats (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert flat: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO flat_members (flat_id, user_id, role) VALUES (?, ?, ?)`,
		id, ownerID, RoleOwner,
	); err != nil {
		return nil, fmt.Errorf("add owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *FlatStore) GetByID(ctx context.Context, id int64) (*model.Flat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+flatCols+` FROM flats WHERE id = ?`, id)
	f, err := scanFlat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flat: %w", err)
	}
	return f, nil
}

func (s *FlatStore) AddMember(ctx context.Context, flatID, userID int64, role string) (*model.FlatMember, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO flat_members (flat_id, user_id, role) VALUES (?, ?, ?)`,
		flatID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+flatMemberCols+` FROM flat_members WHERE id = ?`, id)
	return scanFlatMember(row)
}

func (s *FlatStore) RemoveMember(ctx context.Context, flatID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM flat_members WHERE flat_id = ? AND user_id = ?`,
		flatID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *FlatStore) GetMember(ctx context.Context, flatID, userID int64) (*model.FlatMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+flatMemberCols+` FROM flat_members WHERE flat_id = ? AND user_id = ?`,
		flatID, userID,
	)
	m, err := scanFlatMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *FlatStore) ListMembers(ctx context.Context, flatID int64) ([]model.FlatMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flatMemberCols+` FROM flat_members WHERE flat_id = ? ORDER BY created_at ASC, id ASC`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.FlatMember
	for rows.Next() {
		m, err := scanFlatMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
