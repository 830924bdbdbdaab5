package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
)

// FieldError reports a single invalid field with a user-facing message
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func fieldError(field, format string, args ...interface{}) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateEmail checks that email is a bare address such as "a@b.co"
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, ".") {
		return fieldError("email", "Invalid email format")
	}
	return nil
}

// ValidateRole checks that role is athlete or coach
func ValidateRole(role string) error {
	if !fitness.Role(role).Valid() {
		return fieldError("user_role", "Invalid user role")
	}
	return nil
}

// ValidateAge checks the accepted age range
func ValidateAge(age int) error {
	if age < 13 || age > 100 {
		return fieldError("age", "Age must be between 13 and 100")
	}
	return nil
}

// ValidateWeight checks the accepted weight range in kilograms
func ValidateWeight(weight float64) error {
	if weight < 30 || weight > 300 {
		return fieldError("weight", "Weight must be between 30 and 300 kg")
	}
	return nil
}

// ValidateGoalType checks that goalType is one of the known goal types
func ValidateGoalType(goalType string) error {
	if !fitness.GoalType(goalType).Valid() {
		return fieldError("goal_type", "Invalid goal type")
	}
	return nil
}

// ValidateTargetValue checks that a goal target is positive
func ValidateTargetValue(v float64) error {
	if v <= 0 {
		return fieldError("target_value", "Target value must be greater than 0")
	}
	return nil
}

// ValidateTargetDate rejects dates before today
func ValidateTargetDate(d fitness.Date, now time.Time) error {
	if d.Before(fitness.DateOf(now)) {
		return fieldError("target_date", "Target date cannot be in the past")
	}
	return nil
}

// ValidateFitnessLevel checks that level is a known fitness level
func ValidateFitnessLevel(level string) error {
	if !fitness.FitnessLevel(level).Valid() {
		return fieldError("fitness_level", "Invalid fitness level")
	}
	return nil
}

// RequireNonBlank rejects values that are empty after trimming
func RequireNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fieldError(field, "%s is required", field)
	}
	return nil
}

// First returns the first non-nil error
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
