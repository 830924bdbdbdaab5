package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/contextkeys"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/storage"
)

const (
	msgTokenRequired = "Authorization token required"
	msgBadHeader     = "Invalid authorization header format"
	msgInvalidToken  = "Invalid or expired token"
	msgForbidden     = "Access denied"
)

// UserLookup loads the current state of a user
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*fitness.User, error)
}

// AuthMiddleware authenticates bearer tokens and re-checks the user on
// every request, so deactivated accounts lose access before their token
// expires
type AuthMiddleware struct {
	tokens  *auth.TokenCodec
	users   UserLookup
	metrics auth.Metrics
	logger  *observability.Logger
}

// NewAuthMiddleware creates a new authentication middleware. metrics may be nil.
func NewAuthMiddleware(tokens *auth.TokenCodec, users UserLookup, metrics auth.Metrics, logger *observability.Logger) *AuthMiddleware {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &AuthMiddleware{
		tokens:  tokens,
		users:   users,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, msgTokenRequired)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteUnauthorized(w, msgBadHeader)
			return
		}

		claims, err := m.tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.record(auth.OutcomeExpired)
			} else {
				m.record(auth.OutcomeInvalid)
			}
			httputil.WriteUnauthorized(w, msgInvalidToken)
			return
		}

		user, err := m.users.GetUserByID(r.Context(), claims.UserID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			m.record(auth.OutcomeInvalid)
			httputil.WriteUnauthorized(w, msgInvalidToken)
			return
		case err != nil:
			m.logger.WithError(err).WithField("user_id", claims.UserID).Error("Failed to load token user")
			httputil.WriteInternalError(w)
			return
		case !user.IsActive:
			m.record(auth.OutcomeInvalid)
			httputil.WriteUnauthorized(w, msgInvalidToken)
			return
		}

		m.record(auth.OutcomeSuccess)
		ctx := contextkeys.WithIdentity(r.Context(), auth.IdentityOf(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) record(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordTokenVerification(outcome)
	}
}

// GetIdentity extracts the authenticated identity from the request
func GetIdentity(r *http.Request) (auth.Identity, bool) {
	identity, ok := r.Context().Value(contextkeys.IdentityKey).(auth.Identity)
	return identity, ok
}

// RequireRole creates middleware that admits only the given roles
func RequireRole(roles ...fitness.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r)
			if !ok {
				httputil.WriteUnauthorized(w, msgTokenRequired)
				return
			}

			if !identity.HasRole(roles...) {
				httputil.WriteForbidden(w, msgForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
