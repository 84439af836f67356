package session

import "context"

type contextKey struct{}

// ContextWithID attaches the routed session's id to ctx so downstream tool
// handlers can correlate their work with the session.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id attached by the routing layer, or an
// empty string for requests outside a session, such as the handshake.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
