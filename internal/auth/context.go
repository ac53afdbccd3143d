// Package auth carries the authenticated caller's identity through request
// contexts. The middleware resolves the session cookie into an AuthContext;
// handlers read it back with the package helpers.
package auth

import "context"

// Household roles. Admins manage invites and membership; members browse
// and swipe.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type contextKey struct{}

// AuthContext identifies the caller and the household their session is
// currently scoped to.
type AuthContext struct {
	UserID      int64
	HouseholdID int64
	Role        string
	SessionID   int64
}

// WithAuth returns a context carrying the caller's identity.
func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext extracts the AuthContext, reporting whether one is present.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// HouseholdID returns the caller's active household, or 0 when
// unauthenticated.
func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

// UserID returns the caller's user ID, or 0 when unauthenticated.
func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// IsAdmin reports whether the caller administers their active household.
func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == RoleAdmin
}
