package model

import "time"

type Household struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KidStats is one row of the household overview: a kid's ledger totals plus
// how many of their completions are still waiting for a decision.
type KidStats struct {
	KidID        int64  `json:"kid_id"`
	DisplayName  string `json:"display_name"`
	XP           int    `json:"xp"`
	Coins        int    `json:"coins"`
	Level        int    `json:"level"`
	PendingCount int    `json:"pending_count"`
}
