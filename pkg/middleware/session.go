package middleware

import (
	"errors"
	"net/http"

	"github.com/laot-fitness/laot/pkg/contextkeys"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/session"
)

const (
	msgNotLoggedIn    = "Not logged in"
	msgSessionExpired = "Session expired. Please log in again."
	msgInvalidCSRF    = "Invalid CSRF token"
)

// RequireSession admits requests carrying a live session cookie. The
// session is touched and stored in the context along with its identity.
func RequireSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Load(r)
			if err != nil {
				if errors.Is(err, session.ErrSessionExpired) {
					sessions.Destroy(w, r)
					httputil.WriteUnauthorized(w, msgSessionExpired)
					return
				}
				httputil.WriteUnauthorized(w, msgNotLoggedIn)
				return
			}

			sessions.Touch(s)
			ctx := contextkeys.WithSession(r.Context(), s)
			ctx = contextkeys.WithIdentity(ctx, s.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the web session from the request
func GetSession(r *http.Request) (*session.Session, bool) {
	s, ok := r.Context().Value(contextkeys.SessionKey).(*session.Session)
	return s, ok
}

// RequireCSRF checks the X-CSRF-Token header on state-changing requests.
// It must run after RequireSession.
func RequireCSRF(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			s, ok := GetSession(r)
			if !ok {
				httputil.WriteUnauthorized(w, msgNotLoggedIn)
				return
			}
			if !sessions.VerifyCSRF(s, r.Header.Get(session.CSRFHeader)) {
				httputil.WriteForbidden(w, msgInvalidCSRF)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
