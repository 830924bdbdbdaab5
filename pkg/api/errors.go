package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/validation"
)

const (
	msgNoFields        = "No fields to update"
	msgWorkoutNotFound = "Session not found or access denied"
	msgGoalNotFound    = "Goal not found or access denied"
	msgAthleteWorkouts = "Only athletes can create workout sessions"
	msgAthleteGoals    = "Only athletes can create goals"
	msgWorkoutRequired = "Session date and workout type are required"
	msgGoalRequired    = "Goal type and target value are required"
)

// authStatus maps an authentication error kind onto an HTTP status
func authStatus(e *auth.Error) int {
	switch e.Kind {
	case auth.KindInput:
		if errors.Is(e, storage.ErrDuplicate) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case auth.KindAuth:
		return http.StatusUnauthorized
	case auth.KindLockout:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeAuthError writes err as an envelope. Anything that is not an
// *auth.Error is treated as a store failure.
func writeAuthError(w http.ResponseWriter, logger *observability.Logger, err error) {
	var e *auth.Error
	if !errors.As(err, &e) {
		logger.WithError(err).Error("Unexpected authentication error")
		httputil.WriteInternalError(w)
		return
	}

	status := authStatus(e)
	switch status {
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", strconv.Itoa(e.RemainingSeconds))
		httputil.WriteErrorData(w, status, e.Message, map[string]int{
			"remaining_time": e.RemainingSeconds,
		})
	case http.StatusInternalServerError:
		httputil.WriteInternalError(w)
	default:
		httputil.WriteErrorMessage(w, status, e.Message)
	}
}

// writeStoreError reports a failed store call. ErrNotFound becomes a 404
// with notFound as message.
func writeStoreError(w http.ResponseWriter, logger *observability.Logger, err error, notFound string) {
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, notFound)
		return
	}
	logger.WithError(err).Error("Store call failed")
	httputil.WriteInternalError(w)
}

// writeValidationError writes the message of the first failed check
func writeValidationError(w http.ResponseWriter, err error) {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		httputil.WriteBadRequest(w, fe.Message)
		return
	}
	httputil.WriteBadRequest(w, err.Error())
}
