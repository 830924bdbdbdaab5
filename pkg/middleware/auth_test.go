package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubUsers struct {
	users map[int64]*fitness.User
	err   error
}

func (s *stubUsers) GetUserByID(_ context.Context, id int64) (*fitness.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

type outcomes map[string]int

func (o outcomes) RecordLogin(string)                    {}
func (o outcomes) RecordLockout(string)                  {}
func (o outcomes) RecordRegistration(string)             {}
func (o outcomes) RecordTokenVerification(outcome string) { o[outcome]++ }

func newCodec(t *testing.T, now time.Time) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte(testSecret), time.Hour)
	require.NoError(t, err)
	return codec.WithClock(func() time.Time { return now })
}

func identityHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r)
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, identity)
	})
}

func TestAuthMiddleware(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	codec := newCodec(t, now)

	coach := &fitness.User{ID: 7, Username: "coach01", Role: fitness.RoleCoach, IsActive: true}
	inactive := &fitness.User{ID: 8, Username: "gone_01", Role: fitness.RoleAthlete, IsActive: false}
	users := &stubUsers{users: map[int64]*fitness.User{7: coach, 8: inactive}}

	// Token still claims athlete; the store's current role wins
	staleRole, _, err := codec.Issue(auth.Identity{UserID: 7, Username: "coach01", Role: fitness.RoleAthlete}, time.Hour)
	require.NoError(t, err)
	inactiveToken, _, err := codec.Issue(auth.IdentityOf(inactive), time.Hour)
	require.NoError(t, err)
	missingToken, _, err := codec.Issue(auth.Identity{UserID: 99, Username: "nobody", Role: fitness.RoleAthlete}, time.Hour)
	require.NoError(t, err)
	expired, _, err := codec.Issue(auth.IdentityOf(coach), -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
		outcome    string
	}{
		{"missing header", "", http.StatusUnauthorized, msgTokenRequired, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, msgBadHeader, ""},
		{"no token", "Bearer", http.StatusUnauthorized, msgBadHeader, ""},
		{"garbage token", "Bearer a.b.c", http.StatusUnauthorized, msgInvalidToken, auth.OutcomeInvalid},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, msgInvalidToken, auth.OutcomeExpired},
		{"unknown user", "Bearer " + missingToken, http.StatusUnauthorized, msgInvalidToken, auth.OutcomeInvalid},
		{"inactive user", "Bearer " + inactiveToken, http.StatusUnauthorized, msgInvalidToken, auth.OutcomeInvalid},
		{"valid token", "Bearer " + staleRole, http.StatusOK, "", auth.OutcomeSuccess},
		{"lowercase scheme", "bearer " + staleRole, http.StatusOK, "", auth.OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := outcomes{}
			mw := NewAuthMiddleware(codec, users, metrics, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mw.Handler(identityHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				var env httputil.Envelope
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
				assert.False(t, env.Success)
				assert.Equal(t, tt.wantMsg, env.Message)
			}
			if tt.outcome != "" {
				assert.Equal(t, 1, metrics[tt.outcome])
			}
			if tt.wantStatus == http.StatusOK {
				var got auth.Identity
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, fitness.RoleCoach, got.Role)
				assert.Equal(t, int64(7), got.UserID)
			}
		})
	}
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	now := time.Now()
	codec := newCodec(t, now)
	token, _, err := codec.Issue(auth.Identity{UserID: 7, Username: "coach01", Role: fitness.RoleCoach}, time.Hour)
	require.NoError(t, err)

	mw := NewAuthMiddleware(codec, &stubUsers{err: errors.New("db down")}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mw.Handler(identityHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("no identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireRole(fitness.RoleCoach)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	tests := []struct {
		name  string
		role  fitness.Role
		allow []fitness.Role
		want  int
	}{
		{"coach allowed", fitness.RoleCoach, []fitness.Role{fitness.RoleCoach}, http.StatusNoContent},
		{"athlete denied", fitness.RoleAthlete, []fitness.Role{fitness.RoleCoach}, http.StatusForbidden},
		{"either role", fitness.RoleAthlete, []fitness.Role{fitness.RoleCoach, fitness.RoleAthlete}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(withIdentity(req.Context(), auth.Identity{UserID: 1, Username: "user01", Role: tt.role}))
			w := httptest.NewRecorder()
			RequireRole(tt.allow...)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
