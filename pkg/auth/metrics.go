package auth

// Outcome labels reported to Metrics
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLockedOut          = "locked_out"
	OutcomeDuplicate          = "duplicate"
	OutcomeError              = "error"
	OutcomeExpired            = "expired"
	OutcomeInvalid            = "invalid"
)

// Metrics receives authentication counters
type Metrics interface {
	RecordLogin(outcome string)
	RecordLockout(key string)
	RecordRegistration(outcome string)
	RecordTokenVerification(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string)             {}
func (noopMetrics) RecordLockout(string)           {}
func (noopMetrics) RecordRegistration(string)      {}
func (noopMetrics) RecordTokenVerification(string) {}
