// Package contextkeys provides centralized context key definitions
//
// All request-scoped values shared between middleware and handlers are
// keyed here so the set of keys stays discoverable.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithIdentity(ctx, identity)
//	identity, ok := ctx.Value(contextkeys.IdentityKey).(auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains auth.Identity
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all bearer-protected API endpoints, middleware.RequireRole
	IdentityKey Key = "identity"

	// SessionKey contains *session.Session
	// Set by: middleware.RequireSession (pkg/middleware/session.go)
	// Required by: /web endpoints behind a session cookie
	SessionKey Key = "session"

	// ClientIPKey contains the resolved client address string
	// Set by: middleware.ClientIPMiddleware (pkg/middleware/clientip.go)
	// Used by: login handlers, throttles, audit events
	ClientIPKey Key = "client_ip"
)

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// WithSession adds the web session to the context
func WithSession(ctx context.Context, s interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// WithClientIP adds the resolved client address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// GetClientIP retrieves the client address from context
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}
