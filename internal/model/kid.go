package model

import "time"

type Kid struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	DisplayName string    `json:"display_name"`
	XP          int       `json:"xp"`
	Coins       int       `json:"coins"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Progress is the ledger view of a kid returned after a credit or snapshot.
type Progress struct {
	KidID     int64 `json:"kid_id"`
	XP        int   `json:"xp"`
	Coins     int   `json:"coins"`
	Level     int   `json:"level"`
	LeveledUp bool  `json:"leveled_up"`
}

// LevelForXP derives the level tier from a cumulative experience total:
// every 100 XP is one level, starting at level 1.
func LevelForXP(xp int) int {
	return xp/100 + 1
}
