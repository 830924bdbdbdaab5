package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/validation"
)

// recentSessions is the number of workouts shown on the profile
const recentSessions = 5

// getProfile handles GET /api/profile
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := identity(r)

	user, err := s.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		writeStoreError(w, s.logger, err, "User not found")
		return
	}

	resp := profileResponse{User: user, Goals: []fitness.Goal{}}
	if user.Role == fitness.RoleAthlete {
		profile, err := s.store.GetAthleteProfile(ctx, user.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			writeStoreError(w, s.logger, err, "")
			return
		default:
			sessions, _, err := s.store.ListWorkouts(ctx, user.ID, recentSessions, 0)
			if err != nil {
				writeStoreError(w, s.logger, err, "")
				return
			}
			resp.Profile = &athleteDetail{AthleteProfile: profile, RecentSessions: sessions}
		}

		if resp.Goals, err = s.store.ListGoals(ctx, user.ID); err != nil {
			writeStoreError(w, s.logger, err, "")
			return
		}
	}

	_ = httputil.WriteSuccess(w, "Profile retrieved successfully", resp)
}

// updateProfile handles PUT /api/profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := identity(r)

	var req profileUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	update, err := s.profileUpdate(r, id, &req)
	if err != nil {
		if isFieldError(err) {
			writeValidationError(w, err)
			return
		}
		writeStoreError(w, s.logger, err, "")
		return
	}
	if update.Empty() {
		httputil.WriteBadRequest(w, msgNoFields)
		return
	}

	if update.Email != nil {
		taken, err := s.store.EmailTaken(ctx, *update.Email, id.UserID)
		if err != nil {
			writeStoreError(w, s.logger, err, "")
			return
		}
		if taken {
			httputil.WriteConflict(w, auth.MsgEmailExists)
			return
		}
	}

	err = s.store.UpdateProfile(ctx, id.UserID, update)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		httputil.WriteConflict(w, auth.MsgEmailExists)
		return
	case err != nil:
		writeStoreError(w, s.logger, err, "User not found")
		return
	}

	s.logger.WithField("user_id", id.UserID).Info("Profile updated")
	_ = httputil.WriteSuccess(w, "Profile updated successfully", nil)
}

// profileUpdate validates req and converts it to a store update. Athlete
// fields are merged into the current profile and ignored for coaches.
func (s *Server) profileUpdate(r *http.Request, id auth.Identity, req *profileUpdateRequest) (fitness.ProfileUpdate, error) {
	var checks []error
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		req.Email = &trimmed
		checks = append(checks, validation.ValidateEmail(trimmed))
	}
	if req.Age != nil {
		checks = append(checks, validation.ValidateAge(*req.Age))
	}
	if req.Weight != nil {
		checks = append(checks, validation.ValidateWeight(*req.Weight))
	}
	if req.FitnessLevel != nil {
		checks = append(checks, validation.ValidateFitnessLevel(string(*req.FitnessLevel)))
	}
	if err := validation.First(checks...); err != nil {
		return fitness.ProfileUpdate{}, err
	}

	u := fitness.ProfileUpdate{
		FirstName:  s.clean.TextPtr(req.FirstName),
		LastName:   s.clean.TextPtr(req.LastName),
		Email:      req.Email,
		University: s.clean.TextPtr(req.University),
		Age:        req.Age,
		Weight:     req.Weight,
		Height:     s.clean.TextPtr(req.Height),
	}

	if !isAthlete(id) || req.athleteFields.empty() {
		return u, nil
	}

	current, err := s.store.GetAthleteProfile(r.Context(), id.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		current = fitness.DefaultAthleteProfile()
	case err != nil:
		return fitness.ProfileUpdate{}, err
	}
	if req.Sport != nil {
		current.Sport = s.clean.Text(*req.Sport)
	}
	if req.Position != nil {
		current.Position = s.clean.Text(*req.Position)
	}
	if req.Team != nil {
		current.Team = s.clean.Text(*req.Team)
	}
	if req.FitnessLevel != nil {
		current.FitnessLevel = *req.FitnessLevel
	}
	u.Athlete = current
	return u, nil
}

func isFieldError(err error) bool {
	var fe *validation.FieldError
	return errors.As(err, &fe)
}
