package api

import (
	"errors"
	"net/http"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/middleware"
	"github.com/laot-fitness/laot/pkg/storage"
)

// register handles POST /api/auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	areq := req.toAuth(middleware.ClientIP(r))
	simple := areq.Simple()
	result, err := s.auth.Register(r.Context(), areq)
	if err != nil {
		writeAuthError(w, s.logger, err)
		return
	}

	mode := "full"
	if simple {
		mode = "simple"
	}
	_ = httputil.WriteCreated(w, "Registration successful", registerResponse{
		userData:         newUserData(result.User, result.Token, result.ExpiresAt),
		Profile:          result.Profile,
		RegistrationMode: mode,
	})
}

// login handles POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), auth.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		IP:       middleware.ClientIP(r),
	})
	if err != nil {
		writeAuthError(w, s.logger, err)
		return
	}

	resp := loginResponse{
		userData:       newUserData(result.User, result.Token, result.ExpiresAt),
		Profile:        result.Profile,
		LoginTimestamp: s.now().Format(httputil.TimestampLayout),
	}
	if result.User.Role == fitness.RoleCoach {
		resp.CoachData = result.Athletes
	}
	_ = httputil.WriteSuccess(w, "Login successful", resp)
}

// me handles GET /api/auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	user, err := s.store.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteUnauthorized(w, "Invalid or expired token")
		return
	}
	if err != nil {
		writeStoreError(w, s.logger, err, "")
		return
	}

	_ = httputil.WriteSuccess(w, "User retrieved successfully", map[string]interface{}{
		"user":     user,
		"identity": id,
	})
}
