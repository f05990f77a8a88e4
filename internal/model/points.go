package model

import "time"

type PointsEventType string

const (
	EventAdd      PointsEventType = "add"
	EventSubtract PointsEventType = "subtract"
)

func (t PointsEventType) Valid() bool {
	return t == EventAdd || t == EventSubtract
}

// PointsEvent is an audit record of a points change. Totals are never read
// from this table.
type PointsEvent struct {
	ID           int64           `json:"-"`
	UserID       string          `json:"user_id"`
	Points       int             `json:"points"`
	EventType    PointsEventType `json:"event_type"`
	DailyChoreID *string         `json:"daily_chore_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PointsDateRange struct {
	FirstDate *string `json:"first_date"`
	LastDate  *string `json:"last_date"`
}

type DailyPoints struct {
	Date   string `json:"date"`
	Points int    `json:"points"`
}

type PointsEventFilter struct {
	UserID    string
	BeforeID  int64
	Limit     int
	EventType *PointsEventType
	From      *time.Time
	To        *time.Time
}

type PointsEventPage struct {
	Events     []PointsEvent `json:"events"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}
