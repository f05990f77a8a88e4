package model

import "time"

type ChoreStatus string

const (
	StatusTodo ChoreStatus = "todo"
	StatusDone ChoreStatus = "done"
)

func (s ChoreStatus) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

// DateLayout is the wire and storage format for chore dates.
const DateLayout = "2006-01-02"

// DailyChore is a dated instance of a catalog item. Points is a snapshot of
// the catalog points at creation time.
type DailyChore struct {
	ID             string      `json:"id"`
	HouseholdID    string      `json:"household_id"`
	Date           string      `json:"date"`
	ChoreCatalogID string      `json:"chore_catalog_id"`
	AssigneeID     *string     `json:"assignee_id"`
	TimeOfDay      TimeOfDay   `json:"time_of_day"`
	Status         ChoreStatus `json:"status"`
	Points         int         `json:"points"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}

// Earns reports whether the chore currently contributes points to its assignee.
func (c *DailyChore) Earns() bool {
	return c.AssigneeID != nil && c.Status == StatusDone && c.DeletedAt == nil
}

type DailyChoreFilter struct {
	Date       string
	Status     *ChoreStatus
	AssigneeID *string
}
