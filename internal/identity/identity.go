// Package identity carries the authenticated principal, if any, through the
// request context. A missing principal means the caller is a guest.
package identity

import "context"

// Principal is an authenticated customer or administrator.
type Principal struct {
	UserID   int64
	Email    string
	FullName string
	Admin    bool
}

type contextKey struct{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal attached to the context, or nil when the
// request is anonymous.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}
