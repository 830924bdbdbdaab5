package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/storage"
)

const userColumns = `id, username, password_hash, user_role, is_active, first_name, last_name,
	email, university, age, weight, height, created_at, updated_at, last_login_at`

func scanUser(row rowScanner) (*fitness.User, error) {
	var (
		u         fitness.User
		role      string
		email     sql.NullString
		height    sql.NullString
		age       sql.NullInt64
		weight    sql.NullFloat64
		createdAt int64
		updatedAt int64
		lastLogin sql.NullInt64
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &role, &u.IsActive, &u.FirstName, &u.LastName,
		&email, &u.University, &age, &weight, &height, &createdAt, &updatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}

	u.Role = fitness.Role(role)
	u.Email = stringPtr(email)
	u.Height = stringPtr(height)
	u.Age = intPtr(age)
	u.Weight = floatPtr(weight)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	u.LastLoginAt = unixPtr(lastLogin)
	return &u, nil
}

// GetUserByUsername retrieves a user by exact username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*fitness.User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)

	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(ctx context.Context, id int64) (*fitness.User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// UsernameExists reports whether the username is taken
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := s.rebind(`SELECT COUNT(*) FROM users WHERE username = ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// CreateUser inserts a user and, for athletes with a profile, the athlete profile
func (s *Store) CreateUser(ctx context.Context, nu *fitness.NewUser) (*fitness.User, error) {
	now := s.now().UTC().Truncate(time.Second)
	user := &fitness.User{
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		IsActive:     true,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Email:        nu.Email,
		University:   nu.University,
		Age:          nu.Age,
		Weight:       nu.Weight,
		Height:       nu.Height,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		insertUser := s.rebind(`
			INSERT INTO users (username, password_hash, user_role, is_active, first_name, last_name,
				email, university, age, weight, height, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)

		err := tx.QueryRowContext(ctx, insertUser,
			nu.Username, nu.PasswordHash, string(nu.Role), true, nu.FirstName, nu.LastName,
			nullString(nu.Email), nu.University, nullInt(nu.Age), nullFloat(nu.Weight), nullString(nu.Height),
			now.Unix(), now.Unix(),
		).Scan(&user.ID)
		if err != nil {
			return translate(err)
		}

		if nu.Role != fitness.RoleAthlete || nu.Profile == nil {
			return nil
		}

		insertProfile := s.rebind(`
			INSERT INTO athlete_profiles (user_id, sport, position, team, fitness_level)
			VALUES (?, ?, ?, ?, ?)`)
		_, err = tx.ExecContext(ctx, insertProfile,
			user.ID, nu.Profile.Sport, nu.Profile.Position, nu.Profile.Team, string(nu.Profile.FitnessLevel))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", nu.Username, err)
	}

	return user, nil
}

// TouchLogin stamps a successful login
func (s *Store) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	query := s.rebind(`UPDATE users SET updated_at = ?, last_login_at = ? WHERE id = ?`)

	res, err := s.db.ExecContext(ctx, query, at.Unix(), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update login time: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetActive enables or disables an account
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	query := s.rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`)

	res, err := s.db.ExecContext(ctx, query, active, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
