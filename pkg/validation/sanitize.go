package validation

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from free text before it is stored.
// Credential fields never pass through it.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer that removes all HTML
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns in with all tags removed and surrounding whitespace trimmed
func (s *Sanitizer) Text(in string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(in)))
}

// TextPtr sanitizes an optional value, keeping nil as nil
func (s *Sanitizer) TextPtr(in *string) *string {
	if in == nil {
		return nil
	}
	out := s.Text(*in)
	return &out
}
