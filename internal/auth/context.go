// Package auth resolves request identity: opaque bearer tokens, bcrypt
// password hashes, and the request-context plumbing handlers use to find
// the authenticated user.
package auth

import "context"

type contextKey struct{}

// AuthContext carries the resolved identity for one request.
type AuthContext struct {
	UserID   int64
	Username string
}

// WithAuth returns a context carrying the given identity.
func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext extracts the identity stored by the auth middleware.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// UserID returns the authenticated user id, or 0 when unauthenticated.
func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
