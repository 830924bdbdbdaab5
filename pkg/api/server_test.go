package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/middleware"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/session"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/storage/sqlstore"
	"github.com/laot-fitness/laot/pkg/storage/sqlstore/sqlstoretest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	goodPassword = "Passw0rdOK"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	store    *sqlstore.Store
	sessions *session.Manager
	metrics  *observability.Metrics
	clock    *clock
}

// newTestEnv builds a server over a fresh SQLite store. A nil throttle
// leaves the credential endpoints unthrottled.
func newTestEnv(t *testing.T, throttle Limiter) *testEnv {
	t.Helper()

	clk := &clock{now: base}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	store := sqlstoretest.New(t).WithClock(clk.Now)

	tokens, err := auth.NewTokenCodec([]byte(testSecret), 0)
	require.NoError(t, err)
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	authenticator, err := auth.NewAuthenticator(auth.Dependencies{
		Users:    store,
		Profiles: store,
		Guard:    lockout.NewGuard(store, nil, logger).WithClock(clk.Now),
		Tokens:   tokens.WithClock(clk.Now),
		Hasher:   hasher,
		Metrics:  metrics,
		Logger:   logger,
	})
	require.NoError(t, err)

	sessions := session.NewManager(nil).WithClock(clk.Now)
	server, err := NewServer(Dependencies{
		Auth:     authenticator.WithClock(clk.Now),
		Store:    store,
		Sessions: sessions,
		Metrics:  metrics,
		Throttle: throttle,
		Logger:   logger,
	}, DefaultOptions())
	require.NoError(t, err)
	server.WithClock(clk.Now)

	return &testEnv{
		server:   server,
		handler:  server.Handler(),
		store:    store,
		sessions: sessions,
		metrics:  metrics,
		clock:    clk,
	}
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type request struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, req request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest), "data: %s", env.Data)
}

// registerUser registers username through the API and returns its token
func (e *testEnv) registerUser(t *testing.T, body map[string]interface{}) (int64, string) {
	t.Helper()
	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: body})
	require.Equal(t, http.StatusCreated, w.Code, "register: %s", env.Message)

	var data struct {
		UserID int64  `json:"user_id"`
		Token  string `json:"token"`
	}
	decodeData(t, env, &data)
	return data.UserID, data.Token
}

func (e *testEnv) athlete(t *testing.T, username string) (int64, string) {
	return e.registerUser(t, map[string]interface{}{"username": username, "password": goodPassword})
}

func (e *testEnv) coach(t *testing.T, username string) (int64, string) {
	return e.registerUser(t, map[string]interface{}{
		"username":   username,
		"password":   goodPassword,
		"user_role":  "coach",
		"first_name": "Casey",
		"last_name":  "Coach",
		"email":      username + "@laot.example",
		"university": "La-ot University",
	})
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Dependencies{}, DefaultOptions())
	assert.Error(t, err)
}

func TestRegisterLoginAndMe(t *testing.T) {
	e := newTestEnv(t, nil)

	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"username": "alice01", "password": goodPassword,
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Registration successful", env.Message)
	assert.Len(t, env.Timestamp, len("2006-01-02 15:04:05"))

	var reg struct {
		UserID           int64  `json:"user_id"`
		Username         string `json:"username"`
		Role             string `json:"user_role"`
		Token            string `json:"token"`
		RegistrationMode string `json:"registration_mode"`
		Profile          struct {
			Sport string `json:"sport"`
		} `json:"profile"`
	}
	decodeData(t, env, &reg)
	assert.Equal(t, "alice01", reg.Username)
	assert.Equal(t, "athlete", reg.Role)
	assert.Equal(t, "simple", reg.RegistrationMode)
	assert.Equal(t, "General", reg.Profile.Sport)
	assert.NotEmpty(t, reg.Token)

	w, env = e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"username": "alice01", "password": goodPassword,
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", env.Message)

	var login struct {
		UserID         int64           `json:"user_id"`
		Token          string          `json:"token"`
		ExpiresAt      time.Time       `json:"expires_at"`
		Profile        json.RawMessage `json:"profile"`
		CoachData      json.RawMessage `json:"coach_data"`
		LoginTimestamp string          `json:"login_timestamp"`
	}
	decodeData(t, env, &login)
	assert.Equal(t, reg.UserID, login.UserID)
	assert.True(t, base.Add(auth.DefaultTokenTTL).Equal(login.ExpiresAt))
	assert.Contains(t, string(login.Profile), `"fitness_level":"beginner"`)
	assert.Equal(t, "null", string(login.CoachData))
	assert.Equal(t, "2026-03-14 09:30:00", login.LoginTimestamp)

	w, env = e.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: login.Token})
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Identity auth.Identity `json:"identity"`
	}
	decodeData(t, env, &me)
	assert.Equal(t, "alice01", me.User.Username)
	assert.Equal(t, reg.UserID, me.Identity.UserID)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.LoginAttemptsTotal.WithLabelValues(auth.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RegistrationsTotal.WithLabelValues(auth.OutcomeSuccess)))
}

func TestLogin_CoachGetsCoachData(t *testing.T) {
	e := newTestEnv(t, nil)
	e.coach(t, "coach_01")

	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"username": "coach_01", "password": goodPassword,
	}})
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Role      string          `json:"user_role"`
		Profile   json.RawMessage `json:"profile"`
		CoachData json.RawMessage `json:"coach_data"`
	}
	decodeData(t, env, &login)
	assert.Equal(t, "coach", login.Role)
	assert.Equal(t, "null", string(login.Profile))
	assert.Equal(t, "[]", string(login.CoachData))
}

func TestAuthEndpoints_Errors(t *testing.T) {
	e := newTestEnv(t, nil)
	e.athlete(t, "alice01")

	tests := []struct {
		name        string
		path        string
		body        interface{}
		wantStatus  int
		wantMessage string
	}{
		{"login invalid json", "/api/auth/login", "{", http.StatusBadRequest, "Invalid JSON input"},
		{"login wrong password", "/api/auth/login", map[string]string{"username": "alice01", "password": "Wr0ngPassword"}, http.StatusUnauthorized, auth.MsgInvalidCredentials},
		{"login unknown user", "/api/auth/login", map[string]string{"username": "nobody_1", "password": goodPassword}, http.StatusUnauthorized, auth.MsgInvalidCredentials},
		{"login weak password", "/api/auth/login", map[string]string{"username": "alice01", "password": "short"}, http.StatusBadRequest, ""},
		{"register duplicate", "/api/auth/register", map[string]string{"username": "alice01", "password": goodPassword}, http.StatusConflict, auth.MsgUsernameExists},
		{"register bad username", "/api/auth/register", map[string]string{"username": "a!", "password": goodPassword}, http.StatusBadRequest, ""},
		{"register bad role", "/api/auth/register", map[string]interface{}{
			"username": "bob_01", "password": goodPassword, "user_role": "admin",
			"first_name": "B", "last_name": "B", "email": "b@laot.example", "university": "U",
		}, http.StatusBadRequest, "Invalid user role"},
		{"register full mode missing email", "/api/auth/register", map[string]interface{}{
			"username": "bob_01", "password": goodPassword, "first_name": "Bob",
		}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := e.do(t, request{method: http.MethodPost, path: tt.path, body: tt.body})
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, env.Message)
			} else {
				assert.NotEmpty(t, env.Message)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t, nil)
	e.coach(t, "coach_01")

	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: map[string]interface{}{
		"username": "coach_02", "password": goodPassword, "user_role": "coach",
		"first_name": "C", "last_name": "C", "email": "coach_01@laot.example", "university": "U",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, auth.MsgEmailExists, env.Message)
}

func TestLogin_LockoutReturns429(t *testing.T) {
	e := newTestEnv(t, nil)
	e.athlete(t, "alice01")

	bad := map[string]string{"username": "alice01", "password": "Wr0ngPassword"}
	for i := 0; i < 5; i++ {
		w, _ := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: bad})
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	// The correct password is refused while locked
	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"username": "alice01", "password": goodPassword,
	}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	assert.Equal(t, "Too many failed attempts. Try again in 15 minutes", env.Message)

	var data struct {
		RemainingTime int `json:"remaining_time"`
	}
	decodeData(t, env, &data)
	assert.Equal(t, 900, data.RemainingTime)

	e.clock.Advance(901 * time.Second)
	w, _ = e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"username": "alice01", "password": goodPassword,
	}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	e := newTestEnv(t, nil)
	_, token := e.athlete(t, "alice01")

	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", "", http.StatusUnauthorized},
		{"basic scheme", "", "Basic abc", http.StatusUnauthorized},
		{"valid token", token, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request{method: http.MethodGet, path: "/api/profile", token: tt.token}
			if tt.header != "" {
				req.headers = map[string]string{"Authorization": tt.header}
			}
			w, _ := e.do(t, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestProtectedRoutes_DeactivatedUser(t *testing.T) {
	e := newTestEnv(t, nil)
	id, token := e.athlete(t, "alice01")

	require.NoError(t, e.store.SetActive(t.Context(), id, false))

	w, env := e.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	e := newTestEnv(t, nil)

	w, env := e.do(t, request{method: http.MethodGet, path: "/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", env.Message)

	w, _ = e.do(t, request{method: http.MethodGet, path: "/api/auth/register"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandler_SetsCommonHeaders(t *testing.T) {
	e := newTestEnv(t, nil)

	w, _ := e.do(t, request{method: http.MethodGet, path: "/api/profile"})
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestCredentialEndpoints_Throttled(t *testing.T) {
	throttle := middleware.NewThrottle(&middleware.RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	})
	e := newTestEnv(t, throttle)

	body := map[string]string{"username": "nobody_1", "password": goodPassword}
	w, _ := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: body})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := e.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: body})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.False(t, env.Success)
}

func TestAuthStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *auth.Error
		want int
	}{
		{"input", auth.InputError("bad", nil), http.StatusBadRequest},
		{"duplicate", auth.InputError(auth.MsgUsernameExists, storage.ErrDuplicate), http.StatusConflict},
		{"auth", auth.AuthError(nil), http.StatusUnauthorized},
		{"lockout", auth.LockoutError(lockout.Status{Locked: true, Remaining: time.Minute}), http.StatusTooManyRequests},
		{"store", auth.StoreError(io.ErrUnexpectedEOF), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authStatus(tt.err))
		})
	}
}

func TestWriteAuthError_HidesStoreCause(t *testing.T) {
	w := httptest.NewRecorder()
	writeAuthError(w, observability.NewLogger(observability.ErrorLevel, io.Discard), auth.StoreError(io.ErrUnexpectedEOF))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "unexpected EOF")
}
