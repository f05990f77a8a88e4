package model

import "time"

type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
	TimeAny       TimeOfDay = "any"
)

func (t TimeOfDay) Valid() bool {
	switch t {
	case TimeMorning, TimeAfternoon, TimeEvening, TimeNight, TimeAny:
		return true
	}
	return false
}

// CatalogFilter selects which catalog items GetCatalogItems returns.
type CatalogFilter string

const (
	CatalogAll        CatalogFilter = "all"
	CatalogPredefined CatalogFilter = "predefined"
	CatalogCustom     CatalogFilter = "custom"
)

func (f CatalogFilter) Valid() bool {
	return f == CatalogAll || f == CatalogPredefined || f == CatalogCustom
}

// CatalogItem is a reusable chore template. HouseholdID is nil for the
// global predefined items.
type CatalogItem struct {
	ID              string     `json:"id"`
	HouseholdID     *string    `json:"household_id"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Points          int        `json:"points"`
	TimeOfDay       TimeOfDay  `json:"time_of_day"`
	Emoji           string     `json:"emoji"`
	Predefined      bool       `json:"predefined"`
	CreatedByUserID *string    `json:"created_by_user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}
