package model

import "time"

const (
	FrequencyDaily  = "DAILY"
	FrequencyWeekly = "WEEKLY"
	FrequencyOneOff = "ONE_OFF"
)

// ValidFrequency reports whether f is one of the recurrence classes.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyOneOff:
		return true
	}
	return false
}

type Chore struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Frequency   string    `json:"frequency"`
	KidID       *int64    `json:"kid_id"`
	BaseXP      int       `json:"base_xp"`
	BaseCoins   int       `json:"base_coins"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
