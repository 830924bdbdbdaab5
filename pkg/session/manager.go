package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
)

var (
	// ErrNoSession is returned when the request names no live session
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired is returned when the session has been idle too long
	ErrSessionExpired = errors.New("session expired")
)

// CSRFHeader is the request header carrying the session CSRF token
const CSRFHeader = "X-CSRF-Token"

// Config controls session lifetime and cookie attributes
type Config struct {
	CookieName string
	// IdleTimeout destroys sessions without activity for this long
	IdleTimeout time.Duration
	// CookieTTL is the cookie Max-Age and the server-side lifetime
	CookieTTL time.Duration
	// Capacity bounds the number of live sessions; the least recently used is evicted
	Capacity int
	// ForceSecure marks cookies Secure even on plain HTTP, for TLS-terminating proxies
	ForceSecure bool
}

// DefaultConfig returns a 30 minute idle timeout and a one hour cookie
func DefaultConfig() *Config {
	return &Config{
		CookieName:  "laot_session",
		IdleTimeout: 1800 * time.Second,
		CookieTTL:   3600 * time.Second,
		Capacity:    10000,
	}
}

// Session is the server-side state of one browser login
type Session struct {
	ID           string       `json:"-"`
	UserID       int64        `json:"user_id"`
	Username     string       `json:"username"`
	Role         fitness.Role `json:"user_role"`
	LoginTime    time.Time    `json:"login_time"`
	LastActivity time.Time    `json:"last_activity"`
	CSRFToken    string       `json:"-"`
}

// Identity returns the user the session belongs to
func (s *Session) Identity() auth.Identity {
	return auth.Identity{UserID: s.UserID, Username: s.Username, Role: s.Role}
}

// Manager creates, loads and destroys sessions
type Manager struct {
	config *Config
	store  *lru.LRU[string, *Session]
	mu     sync.Mutex
	now    func() time.Time
}

// NewManager creates a session manager. A nil config uses DefaultConfig.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	return &Manager{
		config: config,
		store:  lru.NewLRU[string, *Session](config.Capacity, nil, config.CookieTTL),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for idle checks
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Start replaces any session named by r with a new one for user and sets
// the session cookie on w
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, user *fitness.User) (*Session, error) {
	if c, err := r.Cookie(m.config.CookieName); err == nil {
		m.store.Remove(c.Value)
	}

	id, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create session id: %w", err)
	}
	csrf, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create csrf token: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:           id,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		LoginTime:    now,
		LastActivity: now,
		CSRFToken:    csrf,
	}
	m.store.Add(id, s)

	http.SetCookie(w, m.cookie(r, id, int(m.config.CookieTTL.Seconds())))

	cp := *s
	return &cp, nil
}

// Load returns the session named by r. A session idle past the timeout is
// destroyed and ErrSessionExpired returned.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.config.CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.store.Get(c.Value)
	if !ok {
		return nil, ErrNoSession
	}
	if m.now().Sub(s.LastActivity) > m.config.IdleTimeout {
		m.store.Remove(c.Value)
		return nil, ErrSessionExpired
	}

	cp := *s
	return &cp, nil
}

// Touch marks the session active now
func (m *Manager) Touch(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.store.Get(s.ID)
	if !ok {
		return
	}
	now := m.now()
	stored.LastActivity = now
	s.LastActivity = now
	m.store.Add(s.ID, stored)
}

// Destroy removes the session named by r and expires its cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.config.CookieName); err == nil {
		m.store.Remove(c.Value)
	}
	http.SetCookie(w, m.cookie(r, "", -1))
}

// VerifyCSRF compares token with the session CSRF token in constant time
func (m *Manager) VerifyCSRF(s *Session, token string) bool {
	if s == nil || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	return m.store.Len()
}

func (m *Manager) cookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil || m.config.ForceSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
