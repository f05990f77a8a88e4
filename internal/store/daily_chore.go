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

type DailyChoreStore struct {
	db DBTX
}

func NewDailyChoreStore(db DBTX) *DailyChoreStore {
	return &DailyChoreStore{db: db}
}

func scanDailyChore(s scanner) (*model.DailyChore, error) {
	var c model.DailyChore
	var assignee sql.NullString
	var deletedAt sql.NullTime
	err := s.Scan(
		&c.ID, &c.HouseholdID, &c.Date, &c.ChoreCatalogID, &assignee, &c.TimeOfDay,
		&c.Status, &c.Points, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	c.AssigneeID = stringPtr(assignee)
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}

const dailyChoreCols = `id, household_id, date, chore_catalog_id, assignee_id, time_of_day, status, points, created_at, updated_at, deleted_at`

// timeOfDayOrder sorts slots through the day with "any" last.
const timeOfDayOrder = `CASE time_of_day
	WHEN 'morning' THEN 0 WHEN 'afternoon' THEN 1 WHEN 'evening' THEN 2 WHEN 'night' THEN 3 ELSE 4 END`

// Create inserts c with status todo, assigning ID and timestamps. A clash
// with another live row in the same slot surfaces as a unique violation.
func (s *DailyChoreStore) Create(ctx context.Context, c model.DailyChore) (*model.DailyChore, error) {
	c.ID = uuid.NewString()
	c.Status = model.StatusTodo
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_chores (`+dailyChoreCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		c.ID, c.HouseholdID, c.Date, c.ChoreCatalogID, nullString(c.AssigneeID), c.TimeOfDay,
		c.Status, c.Points, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert daily chore: %w", err)
	}
	return s.GetByID(ctx, c.HouseholdID, c.ID)
}

// GetByID returns a non-deleted chore of householdID.
func (s *DailyChoreStore) GetByID(ctx context.Context, householdID, id string) (*model.DailyChore, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dailyChoreCols+` FROM daily_chores WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		id, householdID,
	)
	c, err := scanDailyChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily chore: %w", err)
	}
	return c, nil
}

func (s *DailyChoreStore) List(ctx context.Context, householdID string, f model.DailyChoreFilter) ([]model.DailyChore, error) {
	where := []string{"household_id = ?", "date = ?", "deleted_at IS NULL"}
	args := []any{householdID, f.Date}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.AssigneeID != nil {
		where = append(where, "assignee_id = ?")
		args = append(args, *f.AssigneeID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dailyChoreCols+` FROM daily_chores WHERE `+strings.Join(where, " AND ")+
			` ORDER BY `+timeOfDayOrder+`, created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list daily chores: %w", err)
	}
	defer rows.Close()

	var chores []model.DailyChore
	for rows.Next() {
		c, err := scanDailyChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *DailyChoreStore) CountForDate(ctx context.Context, householdID, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_chores WHERE household_id = ? AND date = ? AND deleted_at IS NULL`,
		householdID, date,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count daily chores: %w", err)
	}
	return n, nil
}

// Slot identifies the uniqueness key of a live daily chore.
type Slot struct {
	HouseholdID    string
	Date           string
	ChoreCatalogID string
	TimeOfDay      model.TimeOfDay
	AssigneeID     *string
}

// SlotTaken reports whether a live chore other than excludeID occupies slot.
// The assignee comparison treats two NULLs as equal.
func (s *DailyChoreStore) SlotTaken(ctx context.Context, slot Slot, excludeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_chores
		 WHERE household_id = ? AND date = ? AND chore_catalog_id = ? AND time_of_day = ?
		   AND assignee_id IS ? AND deleted_at IS NULL AND id <> ?`,
		slot.HouseholdID, slot.Date, slot.ChoreCatalogID, slot.TimeOfDay, nullString(slot.AssigneeID), excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check daily chore slot: %w", err)
	}
	return n > 0, nil
}

// DailyChoreUpdate holds the fields to change. SetAssignee distinguishes an
// explicit unassign (AssigneeID nil) from leaving the assignee alone.
type DailyChoreUpdate struct {
	Status      *model.ChoreStatus
	SetAssignee bool
	AssigneeID  *string
}

func (s *DailyChoreStore) Update(ctx context.Context, householdID, id string, u DailyChoreUpdate) (*model.DailyChore, error) {
	var sets []string
	var args []any
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.SetAssignee {
		sets = append(sets, "assignee_id = ?")
		args = append(args, nullString(u.AssigneeID))
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, householdID, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id, householdID)

	_, err := s.db.ExecContext(ctx,
		`UPDATE daily_chores SET `+strings.Join(sets, ", ")+` WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update daily chore: %w", err)
	}
	return s.GetByID(ctx, householdID, id)
}

func (s *DailyChoreStore) SoftDelete(ctx context.Context, householdID, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE daily_chores SET deleted_at = ?, updated_at = ? WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		at.UTC(), at.UTC(), id, householdID,
	)
	if err != nil {
		return fmt.Errorf("soft delete daily chore: %w", err)
	}
	return nil
}

// SoftDeleteByDate soft-deletes every live chore of householdID on date and
// returns how many rows were affected.
func (s *DailyChoreStore) SoftDeleteByDate(ctx context.Context, householdID, date string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE daily_chores SET deleted_at = ?, updated_at = ? WHERE household_id = ? AND date = ? AND deleted_at IS NULL`,
		at.UTC(), at.UTC(), householdID, date,
	)
	if err != nil {
		return 0, fmt.Errorf("soft delete daily chores by date: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
