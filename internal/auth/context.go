package auth

import "context"

// Roles as supplied by the identity layer. Parents approve completions and
// define luxuries; kids submit completions and play games.
const (
	RoleParent = "parent"
	RoleKid    = "kid"
)

type contextKey struct{}

// Caller is the identity the surrounding application resolved for a request.
// This package only carries it; establishing it is out of scope.
type Caller struct {
	HouseholdID int64
	Role        string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok
}

func HouseholdID(ctx context.Context) int64 {
	c, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return c.HouseholdID
}

func IsParent(ctx context.Context) bool {
	c, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return c.Role == RoleParent
}
