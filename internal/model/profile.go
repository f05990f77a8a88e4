package model

import "time"

// Profile is one-to-one with an authenticated identity. TotalPoints is a
// cache refreshed by ledger mutations.
type Profile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	AvatarURL   *string    `json:"avatar_url"`
	TotalPoints int        `json:"total_points"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
