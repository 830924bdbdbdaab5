package api

import (
	"time"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/session"
)

// loginRequest is the body of POST /api/auth/login and /web/login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerRequest is the body of POST /api/auth/register. Sending only
// username and password selects the simple registration mode.
type registerRequest struct {
	Username   string       `json:"username"`
	Password   string       `json:"password"`
	Role       fitness.Role `json:"user_role"`
	FirstName  string       `json:"first_name"`
	LastName   string       `json:"last_name"`
	Email      *string      `json:"email"`
	University string       `json:"university"`
	Age        *int         `json:"age"`
	Weight     *float64     `json:"weight"`
	Height     *string      `json:"height"`

	athleteFields
}

// athleteFields are the athlete profile columns accepted at registration
// and on profile updates
type athleteFields struct {
	Sport        *string               `json:"sport"`
	Position     *string               `json:"position"`
	Team         *string               `json:"team"`
	FitnessLevel *fitness.FitnessLevel `json:"fitness_level"`
}

func (f athleteFields) empty() bool {
	return f.Sport == nil && f.Position == nil && f.Team == nil && f.FitnessLevel == nil
}

// profile returns the fields as an athlete profile, or nil when none are set
func (f athleteFields) profile() *fitness.AthleteProfile {
	if f.empty() {
		return nil
	}
	p := &fitness.AthleteProfile{}
	if f.Sport != nil {
		p.Sport = *f.Sport
	}
	if f.Position != nil {
		p.Position = *f.Position
	}
	if f.Team != nil {
		p.Team = *f.Team
	}
	if f.FitnessLevel != nil {
		p.FitnessLevel = *f.FitnessLevel
	}
	return p
}

func (r *registerRequest) toAuth(ip string) auth.RegisterRequest {
	return auth.RegisterRequest{
		Username:   r.Username,
		Password:   r.Password,
		Role:       r.Role,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		University: r.University,
		Age:        r.Age,
		Weight:     r.Weight,
		Height:     r.Height,
		Profile:    r.athleteFields.profile(),
		IP:         ip,
	}
}

// userData is the account block returned by login and registration
type userData struct {
	UserID     int64        `json:"user_id"`
	Username   string       `json:"username"`
	FirstName  string       `json:"first_name"`
	LastName   string       `json:"last_name"`
	Email      *string      `json:"email"`
	University string       `json:"university"`
	Role       fitness.Role `json:"user_role"`
	Token      string       `json:"token"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

func newUserData(u *fitness.User, token string, expiresAt time.Time) userData {
	return userData{
		UserID:     u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		University: u.University,
		Role:       u.Role,
		Token:      token,
		ExpiresAt:  expiresAt.UTC(),
	}
}

type loginResponse struct {
	userData
	Profile        *fitness.AthleteProfile  `json:"profile"`
	CoachData      []fitness.CoachedAthlete `json:"coach_data"`
	LoginTimestamp string                   `json:"login_timestamp"`
}

type registerResponse struct {
	userData
	Profile          *fitness.AthleteProfile `json:"profile,omitempty"`
	RegistrationMode string                  `json:"registration_mode"`
}

// profileResponse is returned by GET /api/profile
type profileResponse struct {
	User    *fitness.User  `json:"user"`
	Profile *athleteDetail `json:"profile"`
	Goals   []fitness.Goal `json:"goals"`
}

// athleteDetail is an athlete profile with the latest workouts
type athleteDetail struct {
	*fitness.AthleteProfile
	RecentSessions []fitness.WorkoutSession `json:"recent_sessions"`
}

// profileUpdateRequest is the body of PUT /api/profile
type profileUpdateRequest struct {
	FirstName  *string  `json:"first_name"`
	LastName   *string  `json:"last_name"`
	Email      *string  `json:"email"`
	University *string  `json:"university"`
	Age        *int     `json:"age"`
	Weight     *float64 `json:"weight"`
	Height     *string  `json:"height"`

	athleteFields
}

// workoutRequest is the body of POST /api/workouts
type workoutRequest struct {
	SessionDate   string           `json:"session_date"`
	StartTime     *time.Time       `json:"start_time"`
	EndTime       *time.Time       `json:"end_time"`
	WorkoutType   string           `json:"workout_type"`
	Notes         string           `json:"notes"`
	BiometricData []biometricInput `json:"biometric_data"`
}

type biometricInput struct {
	HeartRate      *int       `json:"heart_rate"`
	Pace           *float64   `json:"pace"`
	Distance       *float64   `json:"distance"`
	CaloriesBurned *int       `json:"calories_burned"`
	Steps          *int       `json:"steps"`
	RecordedAt     *time.Time `json:"timestamp"`
}

// workoutUpdateRequest is the body of PUT /api/workouts/{id}
type workoutUpdateRequest struct {
	EndTime     *time.Time `json:"end_time"`
	WorkoutType *string    `json:"workout_type"`
	Notes       *string    `json:"notes"`
}

type workoutList struct {
	Sessions   []fitness.WorkoutSession `json:"sessions"`
	Pagination fitness.Page             `json:"pagination"`
}

// goalRequest is the body of POST /api/goals
type goalRequest struct {
	GoalType     string        `json:"goal_type"`
	TargetValue  *float64      `json:"target_value"`
	CurrentValue float64       `json:"current_value"`
	TargetDate   *fitness.Date `json:"target_date"`
}

// goalUpdateRequest is the body of PUT /api/goals/{id}
type goalUpdateRequest struct {
	TargetValue  *float64      `json:"target_value"`
	CurrentValue *float64      `json:"current_value"`
	TargetDate   *fitness.Date `json:"target_date"`
	IsCompleted  *bool         `json:"is_completed"`
}

func (r goalUpdateRequest) toUpdate() fitness.GoalUpdate {
	return fitness.GoalUpdate{
		TargetValue:  r.TargetValue,
		CurrentValue: r.CurrentValue,
		TargetDate:   r.TargetDate,
		IsCompleted:  r.IsCompleted,
	}
}

type goalList struct {
	Goals      []fitness.Goal    `json:"goals"`
	Statistics fitness.GoalStats `json:"statistics"`
}

// webSessionResponse describes a browser session. The CSRF token is only
// returned at login.
type webSessionResponse struct {
	*session.Session
	CSRFToken string `json:"csrf_token,omitempty"`
}
