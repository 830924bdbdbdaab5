package api

import (
	"net/http"
	"strings"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/validation"
)

// listGoals handles GET /api/goals
func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	athleteID := identity(r).UserID

	goals, err := s.store.ListGoals(ctx, athleteID)
	if err != nil {
		writeStoreError(w, s.logger, err, "")
		return
	}
	stats, err := s.store.GoalStats(ctx, athleteID)
	if err != nil {
		writeStoreError(w, s.logger, err, "")
		return
	}

	_ = httputil.WriteSuccess(w, "Goals retrieved successfully", goalList{Goals: goals, Statistics: stats})
}

// createGoal handles POST /api/goals
func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if !isAthlete(id) {
		httputil.WriteForbidden(w, msgAthleteGoals)
		return
	}

	var req goalRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	goalType := strings.TrimSpace(req.GoalType)
	if goalType == "" || req.TargetValue == nil {
		httputil.WriteBadRequest(w, msgGoalRequired)
		return
	}

	checks := []error{
		validation.ValidateGoalType(goalType),
		validation.ValidateTargetValue(*req.TargetValue),
	}
	if req.TargetDate != nil {
		checks = append(checks, validation.ValidateTargetDate(*req.TargetDate, s.now()))
	}
	if err := validation.First(checks...); err != nil {
		writeValidationError(w, err)
		return
	}

	created, err := s.store.CreateGoal(r.Context(), &fitness.Goal{
		AthleteID:    id.UserID,
		GoalType:     fitness.GoalType(goalType),
		TargetValue:  *req.TargetValue,
		CurrentValue: req.CurrentValue,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", id.UserID).Error("Failed to create goal")
		httputil.WriteInternalError(w)
		return
	}

	_ = httputil.WriteCreated(w, "Goal created successfully", map[string]interface{}{
		"goal_id": created.ID,
		"goal":    created,
	})
}

// updateGoal handles PUT /api/goals/{id}
func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	goalID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	athleteID := identity(r).UserID

	var req goalUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	update := req.toUpdate()

	if update.Empty() {
		if _, err := s.store.GetGoal(r.Context(), goalID, athleteID); err != nil {
			writeStoreError(w, s.logger, err, msgGoalNotFound)
			return
		}
		httputil.WriteBadRequest(w, msgNoFields)
		return
	}

	var checks []error
	if update.TargetValue != nil {
		checks = append(checks, validation.ValidateTargetValue(*update.TargetValue))
	}
	if update.TargetDate != nil {
		checks = append(checks, validation.ValidateTargetDate(*update.TargetDate, s.now()))
	}
	if err := validation.First(checks...); err != nil {
		writeValidationError(w, err)
		return
	}

	goal, err := s.store.UpdateGoal(r.Context(), goalID, athleteID, update)
	if err != nil {
		writeStoreError(w, s.logger, err, msgGoalNotFound)
		return
	}

	_ = httputil.WriteSuccess(w, "Goal updated successfully", goal)
}

// deleteGoal handles DELETE /api/goals/{id}
func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.store.DeleteGoal(r.Context(), goalID, identity(r).UserID); err != nil {
		writeStoreError(w, s.logger, err, msgGoalNotFound)
		return
	}

	_ = httputil.WriteSuccess(w, "Goal deleted successfully", nil)
}
