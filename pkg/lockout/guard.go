package lockout

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/laot-fitness/laot/pkg/observability"
)

// UsernameScope controls how the username key is built
type UsernameScope string

const (
	// ScopeIP counts username failures per (IP, username) pair
	ScopeIP UsernameScope = "ip"
	// ScopeGlobal counts username failures across all IPs
	ScopeGlobal UsernameScope = "global"
)

// Valid reports whether s is a known scope
func (s UsernameScope) Valid() bool {
	return s == ScopeIP || s == ScopeGlobal
}

// UnknownIP is recorded when the client address could not be determined
const UnknownIP = "unknown"

// maxStoredUsername bounds, in characters, what is written to the ledger for
// junk input. It matches the VARCHAR(255) username column.
const maxStoredUsername = 255

// Config defines lockout thresholds
type Config struct {
	// MaxAttempts is the number of failures within Window that triggers a lockout
	MaxAttempts int
	// Window is the trailing interval over which failures are counted
	Window time.Duration
	// Retention is how long attempts are kept before being purged
	Retention time.Duration
	// UsernameScope selects per-IP or global username counting
	UsernameScope UsernameScope
}

// DefaultConfig returns the standard lockout policy: 5 failures in 15 minutes
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   5,
		Window:        900 * time.Second,
		Retention:     24 * time.Hour,
		UsernameScope: ScopeIP,
	}
}

// Validate checks the configuration for usable values
func (c *Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.Window <= 0 {
		return fmt.Errorf("lockout window must be positive")
	}
	if c.Retention < c.Window {
		return fmt.Errorf("retention (%s) must not be shorter than the lockout window (%s)", c.Retention, c.Window)
	}
	if !c.UsernameScope.Valid() {
		return fmt.Errorf("invalid username scope: %s (must be ip or global)", c.UsernameScope)
	}
	return nil
}

// Status is the lockout state for a caller
type Status struct {
	Locked    bool
	Remaining time.Duration
	// Key is the key that triggered the lockout
	Key Key
}

// RemainingSeconds returns the wait time rounded up to whole seconds
func (s Status) RemainingSeconds() int {
	return int(math.Ceil(s.Remaining.Seconds()))
}

// RemainingMinutes returns the wait time rounded up to whole minutes
func (s Status) RemainingMinutes() int {
	return int(math.Ceil(s.Remaining.Minutes()))
}

// Guard evaluates lockout state and records attempts against a Ledger
type Guard struct {
	ledger Ledger
	config *Config
	logger *observability.Logger
	now    func() time.Time
}

// NewGuard creates a guard over ledger
func NewGuard(ledger Ledger, config *Config, logger *observability.Logger) *Guard {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Guard{
		ledger: ledger,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests and replays
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Config returns the active policy
func (g *Guard) Config() *Config {
	return g.config
}

func (g *Guard) keys(ip, username string) []Key {
	ip = normalizeIP(ip)
	keys := []Key{{IP: ip}}
	if username == "" {
		return keys
	}
	username = truncate(username)
	if g.config.UsernameScope == ScopeGlobal {
		return append(keys, Key{Username: username})
	}
	return append(keys, Key{IP: ip, Username: username})
}

// IsLockedOut reports whether ip, or username as scoped by the policy, has
// reached the failure threshold within the window. The IP key is evaluated
// first. An empty username leaves only the IP check.
func (g *Guard) IsLockedOut(ctx context.Context, ip, username string) (Status, error) {
	now := g.now()
	since := now.Add(-g.config.Window)

	for _, key := range g.keys(ip, username) {
		stats, err := g.ledger.FailureStats(ctx, key, since)
		if err != nil {
			return Status{}, fmt.Errorf("failed to read %s attempts: %w", key, err)
		}
		if stats.Failures < g.config.MaxAttempts {
			continue
		}

		remaining := g.config.Window - now.Sub(stats.LastFailure)
		if remaining < 0 {
			remaining = 0
		}
		return Status{Locked: true, Remaining: remaining, Key: key}, nil
	}

	return Status{}, nil
}

// RecordAttempt appends one attempt and then purges attempts past retention.
// Ledgers implementing AttemptPurger only trim the keys of this attempt.
// A failed purge is logged and left for the next call.
func (g *Guard) RecordAttempt(ctx context.Context, ip, username string, success bool) error {
	now := g.now()
	attempt := Attempt{
		IP:       normalizeIP(ip),
		Username: truncate(username),
		At:       now,
		Success:  success,
	}
	if err := g.ledger.Append(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	cutoff := now.Add(-g.config.Retention)
	var err error
	if p, ok := g.ledger.(AttemptPurger); ok {
		err = p.PurgeAttempt(ctx, attempt, cutoff)
	} else {
		_, err = g.ledger.PurgeBefore(ctx, cutoff)
	}
	if err != nil {
		g.logger.WithError(err).Warn("Failed to purge expired login attempts")
	}
	return nil
}

// Purge deletes attempts older than the retention horizon
func (g *Guard) Purge(ctx context.Context) (int64, error) {
	return g.ledger.PurgeBefore(ctx, g.now().Add(-g.config.Retention))
}

func normalizeIP(ip string) string {
	if ip == "" {
		return UnknownIP
	}
	return ip
}

// truncate replaces invalid UTF-8 and cuts username to maxStoredUsername
// characters, so the result is always storable in a UTF-8 text column.
func truncate(username string) string {
	if !utf8.ValidString(username) {
		username = strings.ToValidUTF8(username, string(utf8.RuneError))
	}
	if len(username) <= maxStoredUsername {
		return username
	}
	n := 0
	for i := range username {
		if n == maxStoredUsername {
			return username[:i]
		}
		n++
	}
	return username
}
