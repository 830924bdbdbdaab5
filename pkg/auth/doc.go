// Package auth authenticates users of the La-ot API.
//
// # Overview
//
// The Authenticator runs the login and registration flows on top of a
// credential store, a lockout guard, a password hasher and a token codec:
//
//	check lockout -> validate input -> verify credential -> record attempt -> mint token
//
// Every failed login step records an attempt, so repeated failures from one
// address or against one account lock that caller out for the configured
// window. A successful login does not clear earlier failures.
//
// # Tokens
//
// TokenCodec issues and verifies HS256 JWTs whose payload carries user_id,
// username, user_role, iat and exp:
//
//	codec, err := auth.NewTokenCodec([]byte(secret), 24*time.Hour)
//	token, expiresAt, err := codec.Issue(auth.IdentityOf(user), codec.TTL())
//	claims, err := codec.Verify(token)
//
// Verification accepts HS256 only and applies no clock leeway.
//
// # Errors
//
// Flows return *Error values with one of four kinds. Input, Auth and
// Lockout errors carry a message that is safe to show to the client. Store
// errors carry a generic message and keep the underlying cause for logs.
//
//	var authErr *auth.Error
//	if errors.As(err, &authErr) && authErr.Kind == auth.KindLockout {
//	    w.Header().Set("Retry-After", strconv.Itoa(authErr.RemainingSeconds))
//	}
package auth
