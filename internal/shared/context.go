package shared

import "context"

type userContextKey struct{}

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID   int64
	Username string
}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, userContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(userContextKey{}).(Principal)
	return p, ok
}
