package auth

import "context"

// AuthContext is the resolved credential for a single request. It lives no
// longer than the request unless attached to a session at creation time.
type AuthContext struct {
	// Token is the opaque bearer credential. Never logged in full.
	Token string

	// InstanceURL is the Salesforce org base address. May be empty until a
	// Resource Client is actually needed; EnsureInstanceURL settles it.
	InstanceURL string

	// Principal is an optional identity hint (preferred_username from
	// userinfo). Frequently unset.
	Principal string
}

// Valid reports whether the context carries a usable credential.
func (a *AuthContext) Valid() bool {
	return a != nil && a.Token != ""
}

type contextKey struct{}

// WithContext attaches the AuthContext to a request context for downstream
// consumption by tool handlers.
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the AuthContext attached to ctx, or nil if the request
// was not authenticated (bootstrap methods, stream opens).
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(contextKey{}).(*AuthContext)
	return ac
}
