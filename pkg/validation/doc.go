// Package validation checks and normalizes user input at the API boundary.
//
// # Overview
//
// Credential validation is format-only and performs no I/O. The functions are
// pure so the authenticator can run them before touching any store.
//
// # Credentials
//
//	res := validation.ValidateUsername("  alice01 ")
//	// res.Valid == true, res.Value == "alice01"
//
//	res = validation.ValidatePassword("Passw0rd!")
//	// requires 8+ chars with upper, lower and digit
//
// Usernames are 3 to 50 characters of letters, digits and underscores. The
// normalized value is only trimmed; escaping for display is left to the
// rendering side.
//
// # Profile and Fitness Fields
//
// ValidateEmail, ValidateRole, ValidateAge, ValidateWeight, ValidateGoalType,
// ValidateTargetValue, ValidateTargetDate and ValidateFitnessLevel return a
// *FieldError whose message is safe to show to the caller.
//
// # Free Text
//
// Sanitizer strips markup from notes and profile text using a bluemonday strict
// policy:
//
//	s := validation.NewSanitizer()
//	notes := s.Text("<b>Tempo</b> run")
//	// "Tempo run"
package validation
