package model

import "time"

const (
	LuxuryKindTime      = "TIME"
	LuxuryKindItem      = "ITEM"
	LuxuryKindPrivilege = "PRIVILEGE"
)

// ValidLuxuryKind reports whether k is a known reward kind.
func ValidLuxuryKind(k string) bool {
	switch k {
	case LuxuryKindTime, LuxuryKindItem, LuxuryKindPrivilege:
		return true
	}
	return false
}

// Luxury is a rank-ordered bonus reward a kid can unlock by winning the
// assigned mini-game. Rank is unique per kid, in [1,4]. Minutes is required
// when Kind is TIME.
type Luxury struct {
	ID           int64     `json:"id"`
	HouseholdID  int64     `json:"household_id"`
	KidID        int64     `json:"kid_id"`
	Title        string    `json:"title"`
	Kind         string    `json:"kind"`
	Minutes      *int      `json:"minutes"`
	Rank         int       `json:"rank"`
	AssignedGame string    `json:"assigned_game"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const GrantStatusGranted = "GRANTED"

// LuxuryGrant is the permanent record that a luxury has been unlocked.
// At most one grant ever exists per luxury.
type LuxuryGrant struct {
	ID        int64     `json:"id"`
	LuxuryID  int64     `json:"luxury_id"`
	KidID     int64     `json:"kid_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
