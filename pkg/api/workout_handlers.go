package api

import (
	"net/http"
	"strings"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
)

// Pagination bounds for GET /api/workouts
const (
	defaultWorkoutLimit = 10
	maxWorkoutLimit     = 50
)

// listWorkouts handles GET /api/workouts?limit=&offset=
func (s *Server) listWorkouts(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", defaultWorkoutLimit)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid limit")
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid offset")
		return
	}
	limit, offset = clampPage(limit, offset)

	sessions, total, err := s.store.ListWorkouts(r.Context(), identity(r).UserID, limit, offset)
	if err != nil {
		writeStoreError(w, s.logger, err, "")
		return
	}

	_ = httputil.WriteSuccess(w, "Workout sessions retrieved successfully", workoutList{
		Sessions:   sessions,
		Pagination: fitness.NewPage(total, limit, offset),
	})
}

// clampPage keeps limit within 1..50 (0 or less means the default) and
// offset non-negative
func clampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = defaultWorkoutLimit
	case limit > maxWorkoutLimit:
		limit = maxWorkoutLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// createWorkout handles POST /api/workouts
func (s *Server) createWorkout(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if !isAthlete(id) {
		httputil.WriteForbidden(w, msgAthleteWorkouts)
		return
	}

	var req workoutRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	workoutType := s.clean.Text(req.WorkoutType)
	if strings.TrimSpace(req.SessionDate) == "" || workoutType == "" {
		httputil.WriteBadRequest(w, msgWorkoutRequired)
		return
	}
	date, err := fitness.ParseDate(strings.TrimSpace(req.SessionDate))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid session date, expected YYYY-MM-DD")
		return
	}

	session := &fitness.WorkoutSession{
		AthleteID:   id.UserID,
		SessionDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		WorkoutType: workoutType,
		Notes:       s.clean.Text(req.Notes),
	}
	for _, b := range req.BiometricData {
		sample := fitness.BiometricSample{
			HeartRate:      b.HeartRate,
			Pace:           b.Pace,
			Distance:       b.Distance,
			CaloriesBurned: b.CaloriesBurned,
			Steps:          b.Steps,
		}
		if b.RecordedAt != nil {
			sample.RecordedAt = *b.RecordedAt
		}
		session.Biometrics = append(session.Biometrics, sample)
	}

	created, err := s.store.CreateWorkout(r.Context(), session)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", id.UserID).Error("Failed to create workout session")
		httputil.WriteInternalError(w)
		return
	}

	_ = httputil.WriteCreated(w, "Workout session created successfully", map[string]interface{}{
		"session_id":       created.ID,
		"duration_minutes": created.DurationMinutes,
	})
}

// updateWorkout handles PUT /api/workouts/{id}
func (s *Server) updateWorkout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	id := identity(r)

	var req workoutUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	update := fitness.WorkoutUpdate{
		EndTime:     req.EndTime,
		WorkoutType: s.clean.TextPtr(req.WorkoutType),
		Notes:       s.clean.TextPtr(req.Notes),
	}
	if update.WorkoutType != nil && *update.WorkoutType == "" {
		httputil.WriteBadRequest(w, "Workout type cannot be empty")
		return
	}

	if update.Empty() {
		// Ownership is reported before the empty body
		if _, err := s.store.GetWorkout(r.Context(), sessionID, id.UserID); err != nil {
			writeStoreError(w, s.logger, err, msgWorkoutNotFound)
			return
		}
		httputil.WriteBadRequest(w, msgNoFields)
		return
	}

	updated, err := s.store.UpdateWorkout(r.Context(), sessionID, id.UserID, update)
	if err != nil {
		writeStoreError(w, s.logger, err, msgWorkoutNotFound)
		return
	}

	_ = httputil.WriteSuccess(w, "Workout session updated successfully", updated)
}
