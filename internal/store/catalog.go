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

type CatalogStore struct {
	db DBTX
}

func NewCatalogStore(db DBTX) *CatalogStore {
	return &CatalogStore{db: db}
}

func scanCatalogItem(s scanner) (*model.CatalogItem, error) {
	var c model.CatalogItem
	var householdID, createdBy sql.NullString
	var deletedAt sql.NullTime
	err := s.Scan(
		&c.ID, &householdID, &c.Title, &c.Category, &c.Points, &c.TimeOfDay,
		&c.Emoji, &c.Predefined, &createdBy, &c.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	c.HouseholdID = stringPtr(householdID)
	c.CreatedByUserID = stringPtr(createdBy)
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}

const catalogCols = `id, household_id, title, category, points, time_of_day, emoji, predefined, created_by_user_id, created_at, deleted_at`

// Create inserts item, assigning its ID and CreatedAt.
func (s *CatalogStore) Create(ctx context.Context, item model.CatalogItem) (*model.CatalogItem, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chores_catalog (`+catalogCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		item.ID, nullString(item.HouseholdID), item.Title, item.Category, item.Points, item.TimeOfDay,
		item.Emoji, item.Predefined, nullString(item.CreatedByUserID), item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert catalog item: %w", err)
	}
	return s.GetByID(ctx, item.ID)
}

// GetByID returns the item regardless of owner or deletion state.
func (s *CatalogStore) GetByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogCols+` FROM chores_catalog WHERE id = ?`, id)
	c, err := scanCatalogItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	return c, nil
}

// GetOwned returns a non-deleted item owned by householdID.
func (s *CatalogStore) GetOwned(ctx context.Context, householdID, id string) (*model.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+catalogCols+` FROM chores_catalog WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		id, householdID,
	)
	c, err := scanCatalogItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owned catalog item: %w", err)
	}
	return c, nil
}

// GetUsable returns a non-deleted item that householdID may schedule: its
// own items and the global predefined ones.
func (s *CatalogStore) GetUsable(ctx context.Context, householdID, id string) (*model.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+catalogCols+` FROM chores_catalog
		 WHERE id = ? AND (household_id = ? OR household_id IS NULL) AND deleted_at IS NULL`,
		id, householdID,
	)
	c, err := scanCatalogItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usable catalog item: %w", err)
	}
	return c, nil
}

func (s *CatalogStore) List(ctx context.Context, householdID string, filter model.CatalogFilter) ([]model.CatalogItem, error) {
	var where string
	var args []any
	switch filter {
	case model.CatalogPredefined:
		where = `household_id IS NULL`
	case model.CatalogCustom:
		where = `household_id = ?`
		args = append(args, householdID)
	default:
		where = `(household_id = ? OR household_id IS NULL)`
		args = append(args, householdID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+catalogCols+` FROM chores_catalog WHERE `+where+` AND deleted_at IS NULL
		 ORDER BY created_at DESC, title ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// TitleExists checks for a non-deleted household item with the same title,
// ignoring case. excludeID may be empty.
func (s *CatalogStore) TitleExists(ctx context.Context, householdID, title, excludeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chores_catalog
		 WHERE household_id = ? AND lower(title) = lower(?) AND deleted_at IS NULL AND id <> ?`,
		householdID, title, excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check catalog title: %w", err)
	}
	return n > 0, nil
}

// CatalogUpdate holds the fields to change; nil means unchanged.
type CatalogUpdate struct {
	Title     *string
	Category  *string
	Points    *int
	TimeOfDay *model.TimeOfDay
	Emoji     *string
}

func (u CatalogUpdate) Empty() bool {
	return u.Title == nil && u.Category == nil && u.Points == nil && u.TimeOfDay == nil && u.Emoji == nil
}

func (s *CatalogStore) Update(ctx context.Context, id string, u CatalogUpdate) (*model.CatalogItem, error) {
	var sets []string
	var args []any
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Points != nil {
		sets = append(sets, "points = ?")
		args = append(args, *u.Points)
	}
	if u.TimeOfDay != nil {
		sets = append(sets, "time_of_day = ?")
		args = append(args, *u.TimeOfDay)
	}
	if u.Emoji != nil {
		sets = append(sets, "emoji = ?")
		args = append(args, *u.Emoji)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, `UPDATE chores_catalog SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update catalog item: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *CatalogStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores_catalog SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft delete catalog item: %w", err)
	}
	return nil
}
