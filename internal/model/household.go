package model

import (
	"time"
	_ "time/tzdata"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type Household struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Timezone     string     `json:"timezone"`
	CurrentPIN   string     `json:"-"`
	PINHash      string     `json:"-"`
	PINExpiresAt *time.Time `json:"pin_expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Location returns the household's time zone, falling back to UTC when the
// stored name cannot be loaded.
func (h *Household) Location() *time.Location {
	if h == nil || h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type HouseholdMember struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	UserID      string    `json:"user_id"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Membership is the result of resolving which household a user belongs to.
type Membership struct {
	MemberID    string `json:"member_id"`
	HouseholdID string `json:"household_id"`
	Role        Role   `json:"role"`
}

func (m Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}
