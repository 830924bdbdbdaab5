package lockout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedger is a test double that filters a slice the same way the SQL ledger filters rows
type memLedger struct {
	mu        sync.Mutex
	attempts  []Attempt
	appendErr error
	statsErr  error
	purgeErr  error
	purges    int
}

func (m *memLedger) Append(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memLedger) FailureStats(_ context.Context, key Key, since time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return Stats{}, m.statsErr
	}
	var s Stats
	for _, a := range m.attempts {
		if a.Success || !a.At.After(since) {
			continue
		}
		if key.IP != "" && a.IP != key.IP {
			continue
		}
		if key.Username != "" && a.Username != key.Username {
			continue
		}
		s.Failures++
		if a.At.After(s.LastFailure) {
			s.LastFailure = a.At
		}
	}
	return s, nil
}

func (m *memLedger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purges++
	if m.purgeErr != nil {
		return 0, m.purgeErr
	}
	kept := m.attempts[:0]
	var removed int64
	for _, a := range m.attempts {
		if a.At.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return removed, nil
}

// keyedLedger trims per attempt instead of sweeping, like the Redis ledger
type keyedLedger struct {
	*memLedger
	trimmed []Attempt
}

func (k *keyedLedger) PurgeAttempt(_ context.Context, a Attempt, _ time.Time) error {
	k.trimmed = append(k.trimmed, a)
	return nil
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
}

func newTestGuard(cfg *Config) (*Guard, *memLedger, *clock) {
	ledger := &memLedger{}
	clk := newClock()
	return NewGuard(ledger, cfg, nil).WithClock(clk.Now), ledger, clk
}

func fail(t *testing.T, g *Guard, clk *clock, ip, username string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, g.RecordAttempt(context.Background(), ip, username, false))
		clk.Advance(time.Second)
	}
}

func TestGuard_BelowThreshold(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "alice01", 4)

	status, err := g.IsLockedOut(context.Background(), "10.0.0.1", "alice01")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Zero(t, status.Remaining)
}

func TestGuard_LocksAtThreshold(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "alice01", 5)

	// Last failure was recorded one second ago
	status, err := g.IsLockedOut(context.Background(), "10.0.0.1", "alice01")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 899*time.Second, status.Remaining)
	assert.Equal(t, 899, status.RemainingSeconds())
	assert.Equal(t, 15, status.RemainingMinutes())
	assert.Equal(t, Key{IP: "10.0.0.1"}, status.Key, "IP key is evaluated first")
}

func TestGuard_WindowExpiry(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "alice01", 5)

	clk.Advance(900 * time.Second)

	status, err := g.IsLockedOut(context.Background(), "10.0.0.1", "alice01")
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

func TestGuard_SuccessDoesNotClearHistory(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "alice01", 4)
	require.NoError(t, g.RecordAttempt(context.Background(), "10.0.0.1", "alice01", true))
	fail(t, g, clk, "10.0.0.1", "alice01", 1)

	status, err := g.IsLockedOut(context.Background(), "10.0.0.1", "alice01")
	require.NoError(t, err)
	assert.True(t, status.Locked)
}

func TestGuard_IPKeyCoversAllUsernames(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	for _, name := range []string{"a_user", "b_user", "c_user", "d_user", "e_user"} {
		fail(t, g, clk, "10.0.0.9", name, 1)
	}

	status, err := g.IsLockedOut(context.Background(), "10.0.0.9", "fresh_user")
	require.NoError(t, err)
	assert.True(t, status.Locked)

	status, err = g.IsLockedOut(context.Background(), "10.0.0.10", "fresh_user")
	require.NoError(t, err)
	assert.False(t, status.Locked, "other IPs are unaffected")
}

func TestGuard_EmptyUsernameChecksIPOnly(t *testing.T) {
	g, _, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "", 5)

	status, err := g.IsLockedOut(context.Background(), "10.0.0.1", "")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, Key{IP: "10.0.0.1"}, status.Key)
}

func TestGuard_UsernameScope(t *testing.T) {
	spread := func(t *testing.T, g *Guard, clk *clock) {
		for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"} {
			fail(t, g, clk, ip, "alice01", 1)
		}
	}

	t.Run("per ip scope ignores other addresses", func(t *testing.T) {
		g, _, clk := newTestGuard(nil)
		spread(t, g, clk)

		status, err := g.IsLockedOut(context.Background(), "10.0.0.6", "alice01")
		require.NoError(t, err)
		assert.False(t, status.Locked)
	})

	t.Run("global scope counts every address", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UsernameScope = ScopeGlobal
		g, _, clk := newTestGuard(cfg)
		spread(t, g, clk)

		status, err := g.IsLockedOut(context.Background(), "10.0.0.6", "alice01")
		require.NoError(t, err)
		assert.True(t, status.Locked)
		assert.Equal(t, Key{Username: "alice01"}, status.Key)
	})
}

func TestGuard_RecordAttemptPurgesExpired(t *testing.T) {
	g, ledger, clk := newTestGuard(nil)
	fail(t, g, clk, "10.0.0.1", "alice01", 3)

	clk.Advance(25 * time.Hour)
	require.NoError(t, g.RecordAttempt(context.Background(), "10.0.0.2", "bob_01", true))

	assert.Len(t, ledger.attempts, 1)
	assert.Equal(t, "bob_01", ledger.attempts[0].Username)
}

func TestGuard_RecordAttemptTrimsOnlyAttemptKeys(t *testing.T) {
	ledger := &keyedLedger{memLedger: &memLedger{}}
	g := NewGuard(ledger, nil, nil).WithClock(newClock().Now)

	require.NoError(t, g.RecordAttempt(context.Background(), "10.0.0.1", "alice01", false))

	assert.Zero(t, ledger.purges, "full sweep is left to Purge")
	require.Len(t, ledger.trimmed, 1)
	assert.Equal(t, "alice01", ledger.trimmed[0].Username)

	_, err := g.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.purges)
}

func TestGuard_LongUsernameStoredAsValidUTF8(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		wantChars int
	}{
		{"multi-byte at the byte limit", strings.Repeat("a", 254) + "é", 255},
		{"multi-byte throughout", strings.Repeat("é", 300), 255},
		{"ascii over the limit", strings.Repeat("a", 300), 255},
		{"invalid bytes replaced", "bad\xffname", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ledger, _ := newTestGuard(nil)
			require.NoError(t, g.RecordAttempt(context.Background(), "203.0.113.9", tt.username, false))

			require.Len(t, ledger.attempts, 1)
			stored := ledger.attempts[0].Username
			assert.True(t, utf8.ValidString(stored))
			assert.Equal(t, tt.wantChars, utf8.RuneCountInString(stored))

			// The lockout lookup uses the same stored form
			stats, err := ledger.FailureStats(context.Background(), g.keys("203.0.113.9", tt.username)[1], time.Time{})
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Failures)
		})
	}
}

func TestGuard_EmptyIPRecordedAsUnknown(t *testing.T) {
	g, ledger, _ := newTestGuard(nil)
	require.NoError(t, g.RecordAttempt(context.Background(), "", "alice01", false))
	require.Len(t, ledger.attempts, 1)
	assert.Equal(t, UnknownIP, ledger.attempts[0].IP)
}

func TestGuard_Errors(t *testing.T) {
	t.Run("append failure is returned", func(t *testing.T) {
		g, ledger, _ := newTestGuard(nil)
		ledger.appendErr = errors.New("disk full")
		err := g.RecordAttempt(context.Background(), "10.0.0.1", "alice01", false)
		assert.ErrorContains(t, err, "disk full")
		assert.Zero(t, ledger.purges, "purge is skipped when the append fails")
	})

	t.Run("purge failure is swallowed", func(t *testing.T) {
		g, ledger, _ := newTestGuard(nil)
		ledger.purgeErr = errors.New("lock timeout")
		assert.NoError(t, g.RecordAttempt(context.Background(), "10.0.0.1", "alice01", false))
		assert.Len(t, ledger.attempts, 1)
	})

	t.Run("stats failure is returned", func(t *testing.T) {
		g, ledger, _ := newTestGuard(nil)
		ledger.statsErr = errors.New("connection refused")
		_, err := g.IsLockedOut(context.Background(), "10.0.0.1", "alice01")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"zero window", func(c *Config) { c.Window = 0 }, true},
		{"retention shorter than window", func(c *Config) { c.Retention = time.Minute }, true},
		{"unknown scope", func(c *Config) { c.UsernameScope = "device" }, true},
		{"global scope", func(c *Config) { c.UsernameScope = ScopeGlobal }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
