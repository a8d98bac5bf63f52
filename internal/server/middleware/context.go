// Package middleware carries the HTTP auth middleware: bearer-token
// verification and the identity-in-context plumbing handlers read from.
package middleware

import (
	"context"

	membershipdomain "company-portal/backend/internal/membership/domain"
)

// Identity is the authenticated caller derived from a verified access token.
// The role is trusted as signed; no store lookup happens on this path.
type Identity struct {
	UserID    string
	CompanyID string
	Role      membershipdomain.Role
	SessionID string
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from ctx and true if set; otherwise the
// zero Identity and false.
func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}
