package api

import (
	"net/http"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/middleware"
)

// webLogin handles POST /web/login. It runs the same credential and
// lockout checks as the token login and starts a cookie session instead of
// minting a token.
func (s *Server) webLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.auth.Authenticate(r.Context(), auth.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		IP:       middleware.ClientIP(r),
	})
	if err != nil {
		writeAuthError(w, s.logger, err)
		return
	}

	sess, err := s.sessions.Start(w, r, user)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to start session")
		httputil.WriteInternalError(w)
		return
	}
	s.observeSessions()

	_ = httputil.WriteSuccess(w, "Login successful", webSessionResponse{Session: sess, CSRFToken: sess.CSRFToken})
}

// webSession handles GET /web/session
func (s *Server) webSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r)
	_ = httputil.WriteSuccess(w, "Session active", webSessionResponse{Session: sess})
}

// webLogout handles POST /web/logout
func (s *Server) webLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Destroy(w, r)
	s.observeSessions()
	_ = httputil.WriteSuccess(w, "Logged out successfully", nil)
}

func (s *Server) observeSessions() {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	}
}
