package fitness

import "time"

// Role is the account type of a user
type Role string

const (
	RoleAthlete Role = "athlete"
	RoleCoach   Role = "coach"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAthlete || r == RoleCoach
}

// GoalType identifies what a goal measures
type GoalType string

const (
	GoalDistance  GoalType = "distance"
	GoalTime      GoalType = "time"
	GoalWeight    GoalType = "weight"
	GoalHeartRate GoalType = "heart_rate"
	GoalCustom    GoalType = "custom"
)

// GoalTypes lists every accepted goal type
var GoalTypes = []GoalType{GoalDistance, GoalTime, GoalWeight, GoalHeartRate, GoalCustom}

// Valid reports whether t is a known goal type
func (t GoalType) Valid() bool {
	for _, known := range GoalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// FitnessLevel is the self-reported level on an athlete profile
type FitnessLevel string

const (
	LevelBeginner     FitnessLevel = "beginner"
	LevelIntermediate FitnessLevel = "intermediate"
	LevelAdvanced     FitnessLevel = "advanced"
	LevelElite        FitnessLevel = "elite"
)

// Valid reports whether l is a known fitness level
func (l FitnessLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelElite:
		return true
	}
	return false
}

// User is a credential record plus the profile columns stored with it
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose hash
	Role         Role       `json:"user_role"`
	IsActive     bool       `json:"is_active"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Email        *string    `json:"email,omitempty"`
	University   string     `json:"university,omitempty"`
	Age          *int       `json:"age,omitempty"`
	Weight       *float64   `json:"weight,omitempty"`
	Height       *string    `json:"height,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// NewUser holds the fields needed to create a user
type NewUser struct {
	Username     string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	Email        *string
	University   string
	Age          *int
	Weight       *float64
	Height       *string

	// Profile is created alongside an athlete account
	Profile *AthleteProfile
}

// ProfileUpdate carries a partial profile update; nil fields are left unchanged
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Email      *string
	University *string
	Age        *int
	Weight     *float64
	Height     *string

	// Athlete is applied to athlete_profiles when set
	Athlete *AthleteProfile
}

// Empty reports whether the update changes nothing
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.University == nil && u.Age == nil && u.Weight == nil && u.Height == nil &&
		u.Athlete == nil
}

// AthleteProfile holds sport-specific details for athletes
type AthleteProfile struct {
	UserID       int64        `json:"-"`
	Sport        string       `json:"sport"`
	Position     string       `json:"position"`
	Team         string       `json:"team"`
	FitnessLevel FitnessLevel `json:"fitness_level"`
}

// DefaultAthleteProfile is created for athletes who register without profile details
func DefaultAthleteProfile() *AthleteProfile {
	return &AthleteProfile{
		Sport:        "General",
		Position:     "Player",
		Team:         "Team",
		FitnessLevel: LevelBeginner,
	}
}

// CoachedAthlete is an athlete in an active relationship with a coach
type CoachedAthlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Sport     string  `json:"sport"`
	Team      string  `json:"team"`
}

// WorkoutSession is a single training session logged by an athlete
type WorkoutSession struct {
	ID              int64             `json:"id"`
	AthleteID       int64             `json:"-"`
	SessionDate     Date              `json:"session_date"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	DurationMinutes *int              `json:"duration_minutes"`
	WorkoutType     string            `json:"workout_type"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Biometrics      []BiometricSample `json:"biometric_data,omitempty"`
}

// WorkoutUpdate carries a partial workout update
type WorkoutUpdate struct {
	EndTime     *time.Time
	WorkoutType *string
	Notes       *string
}

// Empty reports whether the update changes nothing
func (u WorkoutUpdate) Empty() bool {
	return u.EndTime == nil && u.WorkoutType == nil && u.Notes == nil
}

// BiometricSample is one reading captured during a workout session
type BiometricSample struct {
	HeartRate      *int      `json:"heart_rate,omitempty"`
	Pace           *float64  `json:"pace,omitempty"`
	Distance       *float64  `json:"distance,omitempty"`
	CaloriesBurned *int      `json:"calories_burned,omitempty"`
	Steps          *int      `json:"steps,omitempty"`
	RecordedAt     time.Time `json:"timestamp"`
}

// Page describes a window over a paginated listing
type Page struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Goal is a measurable target set by an athlete
type Goal struct {
	ID                 int64     `json:"id"`
	AthleteID          int64     `json:"-"`
	GoalType           GoalType  `json:"goal_type"`
	TargetValue        float64   `json:"target_value"`
	CurrentValue       float64   `json:"current_value"`
	TargetDate         *Date     `json:"target_date"`
	IsCompleted        bool      `json:"is_completed"`
	CreatedAt          time.Time `json:"created_at"`
	ProgressPercentage float64   `json:"progress_percentage"`
	IsOverdue          bool      `json:"is_overdue"`
}

// GoalUpdate carries a partial goal update
type GoalUpdate struct {
	TargetValue  *float64
	CurrentValue *float64
	TargetDate   *Date
	IsCompleted  *bool
}

// Empty reports whether the update changes nothing
func (u GoalUpdate) Empty() bool {
	return u.TargetValue == nil && u.CurrentValue == nil && u.TargetDate == nil && u.IsCompleted == nil
}

// GoalStats summarises an athlete's goals
type GoalStats struct {
	Total     int `json:"total_goals"`
	Completed int `json:"completed_goals"`
	Active    int `json:"active_goals"`
}
