package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate")

	// ErrDuplicateEmail is the ErrDuplicate returned when the email column collides
	ErrDuplicateEmail = fmt.Errorf("email %w", ErrDuplicate)
)

// UserReader provides read access to credential records
type UserReader interface {
	// GetUserByUsername returns ErrNotFound when no user has the username
	GetUserByUsername(ctx context.Context, username string) (*fitness.User, error)
	GetUserByID(ctx context.Context, id int64) (*fitness.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// UserWriter provides write access to credential records
type UserWriter interface {
	// CreateUser inserts the user, and the athlete profile when one is given,
	// in one transaction. A username or email collision returns ErrDuplicate.
	CreateUser(ctx context.Context, u *fitness.NewUser) (*fitness.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// UserStore is the credential store used by the authenticator
type UserStore interface {
	UserReader
	UserWriter
}

// ProfileStore manages profile details that hang off a user
type ProfileStore interface {
	// GetAthleteProfile returns ErrNotFound for coaches and athletes without a profile row
	GetAthleteProfile(ctx context.Context, userID int64) (*fitness.AthleteProfile, error)
	ListCoachedAthletes(ctx context.Context, coachID int64) ([]fitness.CoachedAthlete, error)
	EmailTaken(ctx context.Context, email string, excludeUserID int64) (bool, error)
	UpdateProfile(ctx context.Context, userID int64, u fitness.ProfileUpdate) error
}

// WorkoutStore manages workout sessions and their biometric samples
type WorkoutStore interface {
	// ListWorkouts returns one page of sessions, newest first, and the total count
	ListWorkouts(ctx context.Context, athleteID int64, limit, offset int) ([]fitness.WorkoutSession, int, error)
	CreateWorkout(ctx context.Context, w *fitness.WorkoutSession) (*fitness.WorkoutSession, error)
	GetWorkout(ctx context.Context, id, athleteID int64) (*fitness.WorkoutSession, error)
	UpdateWorkout(ctx context.Context, id, athleteID int64, u fitness.WorkoutUpdate) (*fitness.WorkoutSession, error)
}

// GoalStore manages athlete goals
type GoalStore interface {
	ListGoals(ctx context.Context, athleteID int64) ([]fitness.Goal, error)
	GoalStats(ctx context.Context, athleteID int64) (fitness.GoalStats, error)
	CreateGoal(ctx context.Context, g *fitness.Goal) (*fitness.Goal, error)
	GetGoal(ctx context.Context, id, athleteID int64) (*fitness.Goal, error)
	UpdateGoal(ctx context.Context, id, athleteID int64, u fitness.GoalUpdate) (*fitness.Goal, error)
	DeleteGoal(ctx context.Context, id, athleteID int64) error
}

// HealthChecker reports backend availability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store composes every persistence capability of the service
type Store interface {
	UserStore
	ProfileStore
	WorkoutStore
	GoalStore
	HealthChecker
	Close() error
}

// Config for storage backends
type Config struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite"
	DSN    string `yaml:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Timeout         time.Duration `yaml:"timeout"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`

	// Redis config, used by the redis attempt ledger and the distributed throttle
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             "file:laot.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		MaxOpenConns:    20,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		Timeout:         10 * time.Second,
		MigrateOnStart:  true,
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}
}
