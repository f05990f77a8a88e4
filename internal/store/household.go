package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/homecrew/internal/model"
)

type HouseholdStore struct {
	db DBTX
}

func NewHouseholdStore(db DBTX) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(s scanner) (*model.Household, error) {
	var h model.Household
	var expires sql.NullTime
	err := s.Scan(&h.ID, &h.Name, &h.Timezone, &h.CurrentPIN, &h.PINHash, &expires, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.PINExpiresAt = timePtr(expires)
	return &h, nil
}

func scanHouseholdMember(s scanner) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := s.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const householdCols = `id, name, timezone, current_pin, pin_hash, pin_expires_at, created_at, updated_at`
const householdMemberCols = `id, household_id, user_id, role, joined_at`

func (s *HouseholdStore) Create(ctx context.Context, name, timezone string) (*model.Household, error) {
	id := uuid.NewString()
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO households (id, name, timezone, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, timezone, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// Update writes only the non-nil fields.
func (s *HouseholdStore) Update(ctx context.Context, id string, name, timezone *string) (*model.Household, error) {
	var sets []string
	var args []any
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if timezone != nil {
		sets = append(sets, "timezone = ?")
		args = append(args, *timezone)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id)

	_, err := s.db.ExecContext(ctx, `UPDATE households SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) SetPIN(ctx context.Context, id, pin, pinHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE households SET current_pin = ?, pin_hash = ?, pin_expires_at = ?, updated_at = ? WHERE id = ?`,
		pin, pinHash, expiresAt.UTC(), now(), id,
	)
	if err != nil {
		return fmt.Errorf("set household pin: %w", err)
	}
	return nil
}

func (s *HouseholdStore) AddMember(ctx context.Context, householdID, userID string, role model.Role) (*model.HouseholdMember, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_members (id, household_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`,
		id, householdID, userID, role, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetMemberByID(ctx, id)
}

func (s *HouseholdStore) getMember(ctx context.Context, where string, args ...any) (*model.HouseholdMember, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdMemberCols+` FROM household_members WHERE `+where, args...)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) GetMemberByID(ctx context.Context, id string) (*model.HouseholdMember, error) {
	return s.getMember(ctx, `id = ?`, id)
}

// GetMemberByUser returns the single membership of userID, if any.
func (s *HouseholdStore) GetMemberByUser(ctx context.Context, userID string) (*model.HouseholdMember, error) {
	return s.getMember(ctx, `user_id = ?`, userID)
}

func (s *HouseholdStore) GetMember(ctx context.Context, householdID, userID string) (*model.HouseholdMember, error) {
	return s.getMember(ctx, `household_id = ? AND user_id = ?`, householdID, userID)
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID string) ([]model.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? ORDER BY joined_at ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanHouseholdMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) CountAdmins(ctx context.Context, householdID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members WHERE household_id = ? AND role = 'admin'`,
		householdID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// lastAdminGuard is true when the row is not the only admin of its household.
const lastAdminGuard = `(role <> 'admin' OR (SELECT COUNT(*) FROM household_members hm
	WHERE hm.household_id = household_members.household_id AND hm.role = 'admin') > 1)`

// UpdateMemberRole changes a member's role. A demotion of the household's
// only admin is refused by the statement itself; ok reports whether a row
// was changed.
func (s *HouseholdStore) UpdateMemberRole(ctx context.Context, memberID string, role model.Role) (bool, error) {
	query := `UPDATE household_members SET role = ? WHERE id = ?`
	if role != model.RoleAdmin {
		query += ` AND ` + lastAdminGuard
	}
	res, err := s.db.ExecContext(ctx, query, role, memberID)
	if err != nil {
		return false, fmt.Errorf("update member role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveMember hard-deletes a membership unless it is the household's only
// admin; ok reports whether a row was deleted.
func (s *HouseholdStore) RemoveMember(ctx context.Context, memberID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM household_members WHERE id = ? AND `+lastAdminGuard,
		memberID,
	)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
