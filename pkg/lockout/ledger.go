package lockout

import (
	"context"
	"time"
)

// Attempt is one login attempt, successful or not
type Attempt struct {
	IP       string
	Username string
	At       time.Time
	Success  bool
}

// Key selects the attempts a lockout decision is based on.
// Empty fields match any value.
type Key struct {
	IP       string
	Username string
}

func (k Key) String() string {
	switch {
	case k.IP != "" && k.Username != "":
		return "ip+username"
	case k.Username != "":
		return "username"
	default:
		return "ip"
	}
}

// Stats summarises failed attempts for a key since a point in time
type Stats struct {
	Failures    int
	LastFailure time.Time
}

// Ledger is the append-only store of login attempts.
// Implementations must not cache counts in process.
type Ledger interface {
	// Append records a single attempt
	Append(ctx context.Context, a Attempt) error

	// FailureStats counts failed attempts matching key strictly after since
	FailureStats(ctx context.Context, key Key, since time.Time) (Stats, error)

	// PurgeBefore deletes attempts older than cutoff and returns how many were removed
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptPurger is implemented by ledgers whose PurgeBefore sweeps every key.
// RecordAttempt then trims only the keys the new attempt touched and leaves
// the full sweep to Purge.
type AttemptPurger interface {
	PurgeAttempt(ctx context.Context, a Attempt, cutoff time.Time) error
}
