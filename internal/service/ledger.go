package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/store"
)

// Ledger manages the dated chore instances of a household.
type Ledger struct {
	db     *store.DB
	now    func() time.Time
	logger *slog.Logger
}

type DailyChoresQuery struct {
	Date       string
	Status     *model.ChoreStatus
	AssigneeID *string
}

// GetDailyChores lists live chores for a date, today in the household's time
// zone when no date is given.
func (l *Ledger) GetDailyChores(ctx context.Context, householdID string, q DailyChoresQuery) ([]model.DailyChore, error) {
	if q.Date == "" {
		h, err := l.db.Households.GetByID(ctx, householdID)
		if err != nil {
			return nil, err
		}
		q.Date = l.now().In(h.Location()).Format(model.DateLayout)
	} else if err := validateDate("date", q.Date); err != nil {
		return nil, err
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, apperr.Field("status", "must be one of: todo, done")
	}
	if q.AssigneeID != nil {
		if err := validateUUID("assignee_id", *q.AssigneeID); err != nil {
			return nil, err
		}
	}
	return l.db.Chores.List(ctx, householdID, model.DailyChoreFilter{
		Date:       q.Date,
		Status:     q.Status,
		AssigneeID: q.AssigneeID,
	})
}

type CreateDailyChoreInput struct {
	Date           string           `json:"date" validate:"required,datetime=2006-01-02"`
	ChoreCatalogID string           `json:"chore_catalog_id" validate:"required,uuid"`
	AssigneeID     *string          `json:"assignee_id" validate:"omitnil,uuid"`
	TimeOfDay      *model.TimeOfDay `json:"time_of_day" validate:"omitnil,oneof=morning afternoon evening night any"`
}

func (l *Ledger) CreateDailyChore(ctx context.Context, householdID, userID string, in CreateDailyChoreInput) (*model.DailyChore, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var chore *model.DailyChore
	err := l.db.InTx(ctx, func(tx *store.Set) error {
		item, err := tx.Catalog.GetUsable(ctx, householdID, in.ChoreCatalogID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.New(apperr.CatalogItemNotFound)
		}
		if in.AssigneeID != nil {
			if err := requireAssignee(ctx, tx, householdID, *in.AssigneeID); err != nil {
				return err
			}
		}

		tod := item.TimeOfDay
		if in.TimeOfDay != nil {
			tod = *in.TimeOfDay
		}

		n, err := tx.Chores.CountForDate(ctx, householdID, in.Date)
		if err != nil {
			return err
		}
		if n >= DailyChoreLimit {
			return apperr.New(apperr.DailyLimitExceeded)
		}

		slot := store.Slot{
			HouseholdID:    householdID,
			Date:           in.Date,
			ChoreCatalogID: item.ID,
			TimeOfDay:      tod,
			AssigneeID:     in.AssigneeID,
		}
		taken, err := tx.Chores.SlotTaken(ctx, slot, "")
		if err != nil {
			return err
		}
		if taken {
			return apperr.New(apperr.DuplicateChore)
		}

		chore, err = tx.Chores.Create(ctx, model.DailyChore{
			HouseholdID:    householdID,
			Date:           in.Date,
			ChoreCatalogID: item.ID,
			AssigneeID:     in.AssigneeID,
			TimeOfDay:      tod,
			Points:         item.Points,
		})
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.DuplicateChore)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("daily chore created", "household_id", householdID, "chore_id", chore.ID, "by", userID)
	return chore, nil
}

// OptionalID is a JSON field that distinguishes absent, null and a value.
type OptionalID struct {
	Set   bool
	Value *string
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Assign returns an OptionalID that sets the value; nil unassigns.
func Assign(id *string) OptionalID {
	return OptionalID{Set: true, Value: id}
}

type UpdateDailyChoreInput struct {
	Status     *model.ChoreStatus `json:"status" validate:"omitnil,oneof=todo done"`
	AssigneeID OptionalID         `json:"assignee_id"`
}

func (l *Ledger) UpdateDailyChore(ctx context.Context, householdID, choreID, userID string, in UpdateDailyChoreInput) (*model.DailyChore, error) {
	if in.Status == nil && !in.AssigneeID.Set {
		return nil, apperr.Field("status", "at least one of status or assignee_id is required")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.AssigneeID.Value != nil {
		if err := validateUUID("assignee_id", *in.AssigneeID.Value); err != nil {
			return nil, err
		}
	}

	var updated *model.DailyChore
	err := l.db.InTx(ctx, func(tx *store.Set) error {
		current, err := l.authorizedChore(ctx, tx, householdID, choreID, userID)
		if err != nil {
			return err
		}
		if in.AssigneeID.Set && !sameAssignee(current.AssigneeID, in.AssigneeID.Value) {
			if in.AssigneeID.Value != nil {
				if err := requireAssignee(ctx, tx, householdID, *in.AssigneeID.Value); err != nil {
					return err
				}
			}
			slot := store.Slot{
				HouseholdID:    householdID,
				Date:           current.Date,
				ChoreCatalogID: current.ChoreCatalogID,
				TimeOfDay:      current.TimeOfDay,
				AssigneeID:     in.AssigneeID.Value,
			}
			taken, err := tx.Chores.SlotTaken(ctx, slot, current.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.New(apperr.DuplicateChore)
			}
		}

		updated, err = tx.Chores.Update(ctx, householdID, choreID, store.DailyChoreUpdate{
			Status:      in.Status,
			SetAssignee: in.AssigneeID.Set,
			AssigneeID:  in.AssigneeID.Value,
		})
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.DuplicateChore)
		}
		if err != nil {
			return err
		}
		return syncPoints(ctx, tx, current, updated)
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("daily chore updated", "household_id", householdID, "chore_id", choreID, "by", userID)
	return updated, nil
}

func (l *Ledger) DeleteDailyChore(ctx context.Context, householdID, choreID, userID string) error {
	err := l.db.InTx(ctx, func(tx *store.Set) error {
		current, err := l.authorizedChore(ctx, tx, householdID, choreID, userID)
		if err != nil {
			return err
		}
		if err := tx.Chores.SoftDelete(ctx, householdID, choreID, l.now()); err != nil {
			return err
		}
		return syncPoints(ctx, tx, current, nil)
	})
	if err != nil {
		return err
	}
	l.logger.Debug("daily chore deleted", "household_id", householdID, "chore_id", choreID, "by", userID)
	return nil
}

// DeleteDailyChoresByDate soft-deletes every live chore on date. Admin only.
func (l *Ledger) DeleteDailyChoresByDate(ctx context.Context, householdID, date, userID string) (int64, error) {
	if err := validateDate("date", date); err != nil {
		return 0, err
	}

	var n int64
	err := l.db.InTx(ctx, func(tx *store.Set) error {
		if err := requireAdmin(ctx, tx, userID, householdID); err != nil {
			return err
		}
		chores, err := tx.Chores.List(ctx, householdID, model.DailyChoreFilter{Date: date})
		if err != nil {
			return err
		}
		n, err = tx.Chores.SoftDeleteByDate(ctx, householdID, date, l.now())
		if err != nil {
			return err
		}
		for i := range chores {
			if err := syncPoints(ctx, tx, &chores[i], nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.logger.Info("daily chores cleared", "household_id", householdID, "date", date, "count", n, "by", userID)
	return n, nil
}

// authorizedChore loads a live chore the caller may modify: the current
// assignee or a household admin.
func (l *Ledger) authorizedChore(ctx context.Context, tx *store.Set, householdID, choreID, userID string) (*model.DailyChore, error) {
	chore, err := tx.Chores.GetByID(ctx, householdID, choreID)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, apperr.New(apperr.NotFound)
	}
	if chore.AssigneeID != nil && *chore.AssigneeID == userID {
		return chore, nil
	}
	m, err := tx.Households.GetMember(ctx, householdID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Role != model.RoleAdmin {
		return nil, apperr.New(apperr.Unauthorized)
	}
	return chore, nil
}

func requireAssignee(ctx context.Context, tx *store.Set, householdID, userID string) error {
	m, err := tx.Households.GetMember(ctx, householdID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		e := apperr.New(apperr.AssigneeNotInHouse)
		e.Details = []apperr.FieldError{{Field: "assignee_id", Message: "is not a member of this household"}}
		return e
	}
	return nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type pointsChange struct {
	userID    string
	points    int
	eventType model.PointsEventType
	choreID   string
}

// pointsChanges lists the events needed when a chore moves from before to
// after. A nil after means the chore was deleted.
func pointsChanges(before, after *model.DailyChore) []pointsChange {
	earnedBefore := before != nil && before.Earns()
	earnsAfter := after != nil && after.Earns()

	var changes []pointsChange
	if earnedBefore && (!earnsAfter || *before.AssigneeID != *after.AssigneeID) {
		changes = append(changes, pointsChange{*before.AssigneeID, before.Points, model.EventSubtract, before.ID})
	}
	if earnsAfter && (!earnedBefore || *before.AssigneeID != *after.AssigneeID) {
		changes = append(changes, pointsChange{*after.AssigneeID, after.Points, model.EventAdd, after.ID})
	}
	return changes
}

// syncPoints appends audit events and refreshes the cached profile totals
// for every user whose points changed.
func syncPoints(ctx context.Context, tx *store.Set, before, after *model.DailyChore) error {
	for _, c := range pointsChanges(before, after) {
		choreID := c.choreID
		if _, err := tx.Points.AppendEvent(ctx, c.userID, c.points, c.eventType, &choreID); err != nil {
			return err
		}
		total, err := tx.Points.TotalForUser(ctx, c.userID)
		if err != nil {
			return err
		}
		if err := tx.Profiles.SetTotalPoints(ctx, c.userID, total); err != nil {
			return err
		}
	}
	return nil
}
