package store

import "errors"

// Business-rule sentinels. Handlers map these to HTTP statuses with errors.Is;
// everything else bubbles up as an internal error.
var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyCompletedToday = errors.New("chore already completed today")
	ErrAlreadyDecided        = errors.New("completion already decided")
	ErrChoreNotAssignable    = errors.New("chore not assignable to this kid")
)
