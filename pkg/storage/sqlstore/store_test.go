package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, DialectPostgres).WithClock(func() time.Time { return testNow }), mock
}

var userColumnNames = []string{
	"id", "username", "password_hash", "user_role", "is_active", "first_name", "last_name",
	"email", "university", "age", "weight", "height", "created_at", "updated_at", "last_login_at",
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"PostgreSQL", DialectPostgres, false},
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"mysql", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	lite := New(nil, DialectSQLite)

	q := `SELECT id FROM goals WHERE id = ? AND athlete_id = ?`
	assert.Equal(t, `SELECT id FROM goals WHERE id = $1 AND athlete_id = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

func TestMockPostgres_GetUserByUsername(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(userColumnNames).AddRow(
		int64(7), "alice01", "hash", "athlete", true, "Alice", "Runner",
		nil, "", nil, nil, nil, testNow.Unix(), testNow.Unix(), nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice01").
		WillReturnRows(rows)

	u, err := s.GetUserByUsername(context.Background(), "alice01")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, fitness.RoleAthlete, u.Role)
	assert.Nil(t, u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPostgres_QueryErrorIsWrapped(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection refused"))

	_, err := s.GetUserByID(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPostgres_CreateUserDuplicateRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_username_key"`})
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), &fitness.NewUser{
		Username: "alice01", PasswordHash: "h", Role: fitness.RoleAthlete, Profile: fitness.DefaultAthleteProfile(),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
	assert.NotErrorIs(t, err, storage.ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPostgres_CreateUserCommitsProfile(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO athlete_profiles (user_id, sport, position, team, fitness_level) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(int64(11), "General", "Player", "Team", "beginner").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := s.CreateUser(context.Background(), &fitness.NewUser{
		Username: "alice01", PasswordHash: "h", Role: fitness.RoleAthlete, Profile: fitness.DefaultAthleteProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPostgres_Ledger(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	since := testNow.Add(-15 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_attempts (ip_address, username, attempt_time, success) VALUES ($1, $2, $3, $4)")).
		WithArgs("10.0.0.1", "alice01", testNow.UnixMilli(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery(regexp.QuoteMeta("AND ip_address = $3 AND username = $4")).
		WithArgs(false, since.UnixMilli(), "10.0.0.1", "alice01").
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(5, testNow.UnixMilli()))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM login_attempts WHERE attempt_time < $1")).
		WithArgs(testNow.Add(-24 * time.Hour).UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, s.Append(ctx, lockout.Attempt{IP: "10.0.0.1", Username: "alice01", At: testNow}))

	stats, err := s.FailureStats(ctx, lockout.Key{IP: "10.0.0.1", Username: "alice01"}, since)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Failures)
	assert.Equal(t, testNow.UnixMilli(), stats.LastFailure.UnixMilli())

	removed, err := s.PurgeBefore(ctx, testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPostgres_DeleteGoalNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM goals WHERE id = $1 AND athlete_id = $2")).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteGoal(context.Background(), 3, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
