package validation

import (
	"regexp"
	"strings"
)

const (
	// MinUsernameLength is the shortest accepted username
	MinUsernameLength = 3
	// MaxUsernameLength is the longest accepted username
	MaxUsernameLength = 50
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Result is the outcome of validating a single credential field
type Result struct {
	Valid bool
	// Value is the normalized input, set only when Valid
	Value string
	// Error is a user-facing message, set only when not Valid
	Error string
}

func invalid(message string) Result {
	return Result{Valid: false, Error: message}
}

// ValidateUsername trims raw and checks it against the username rules.
// The normalized value is the trimmed input; no escaping is applied since
// storage uses parameterized queries.
func ValidateUsername(raw string) Result {
	username := strings.TrimSpace(raw)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return invalid("Username must be between 3 and 50 characters")
	}

	if !usernamePattern.MatchString(username) {
		return invalid("Username can only contain letters, numbers, and underscores")
	}

	return Result{Valid: true, Value: username}
}

// ValidatePassword checks raw against the password strength rules.
// Passwords are never trimmed or otherwise altered.
func ValidatePassword(raw string) Result {
	if len(raw) < MinPasswordLength {
		return invalid("Password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}

	if !hasUpper {
		return invalid("Password must contain at least one uppercase letter")
	}
	if !hasLower {
		return invalid("Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return invalid("Password must contain at least one number")
	}

	return Result{Valid: true, Value: raw}
}
