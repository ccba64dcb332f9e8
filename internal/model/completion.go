package model

import "time"

// Approval states. A completion starts pending and transitions at most once
// to approved or denied.
const (
	StatePending  = "pending"
	StateApproved = "approved"
	StateDenied   = "denied"
)

// Completion records one performance of a chore by a kid. XPEarned and
// CoinsEarned are snapshots of the chore's reward at submission time; editing
// the chore later never changes them. CompletedOn is the submitter's local
// calendar day (YYYY-MM-DD) and keys the once-per-day rule.
type Completion struct {
	ID          int64      `json:"id"`
	ChoreID     int64      `json:"chore_id"`
	KidID       int64      `json:"kid_id"`
	XPEarned    int        `json:"xp_earned"`
	CoinsEarned int        `json:"coins_earned"`
	State       string     `json:"state"`
	CompletedOn string     `json:"completed_on"`
	DecidedAt   *time.Time `json:"decided_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
