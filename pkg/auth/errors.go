package auth

import (
	"errors"
	"fmt"

	"github.com/laot-fitness/laot/pkg/lockout"
)

// Kind classifies an authentication failure
type Kind int

const (
	// KindInput is a request that failed validation or collided with existing data
	KindInput Kind = iota + 1
	// KindAuth is a bad credential, an unknown user or a deactivated account
	KindAuth
	// KindLockout is a caller blocked by too many recent failures
	KindLockout
	// KindStore is a backend failure
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAuth:
		return "auth"
	case KindLockout:
		return "lockout"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Client-facing messages
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgInternal           = "An internal error occurred. Please try again later"
	MsgUsernameExists     = "Username already exists"
	MsgEmailExists        = "Email already exists"
	MsgPasswordTooLong    = "Password must be at most 72 bytes long"
)

// Error is returned by the authentication flows
type Error struct {
	Kind    Kind
	Message string

	// RemainingSeconds is set on lockout errors
	RemainingSeconds int

	// Err is the internal cause; it is never shown to clients
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InputError reports a request the caller has to fix
func InputError(message string, cause error) *Error {
	return &Error{Kind: KindInput, Message: message, Err: cause}
}

// AuthError reports a failed credential check without saying which part failed
func AuthError(cause error) *Error {
	return &Error{Kind: KindAuth, Message: MsgInvalidCredentials, Err: cause}
}

// LockoutError reports a blocked caller and how long it has to wait
func LockoutError(status lockout.Status) *Error {
	return &Error{
		Kind:             KindLockout,
		Message:          fmt.Sprintf("Too many failed attempts. Try again in %d minutes", status.RemainingMinutes()),
		RemainingSeconds: status.RemainingSeconds(),
	}
}

// StoreError hides a backend failure behind a generic message
func StoreError(cause error) *Error {
	return &Error{Kind: KindStore, Message: MsgInternal, Err: cause}
}

// IsKind reports whether err is an *Error of kind k
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
