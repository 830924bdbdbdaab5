package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestStore creates a named shared in-memory SQLite database with the
// schema applied. The name is derived from t.Name() so tests stay isolated.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	store, err := Open(context.Background(), storage.Config{
		Driver:         "sqlite",
		DSN:            dsn,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	store.WithClock(func() time.Time { return testNow })

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createAthlete(t *testing.T, s *Store, username string) *fitness.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &fitness.NewUser{
		Username:     username,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         fitness.RoleAthlete,
		FirstName:    "Test",
		LastName:     "Athlete",
		Profile:      fitness.DefaultAthleteProfile(),
	})
	require.NoError(t, err)
	return u
}

func createCoach(t *testing.T, s *Store, username string) *fitness.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &fitness.NewUser{
		Username:     username,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         fitness.RoleCoach,
		FirstName:    "Test",
		LastName:     "Coach",
	})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }
func intP(i int) *int         { return &i }
func floatP(f float64) *float64 {
	return &f
}
