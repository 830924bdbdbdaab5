package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/storage"
)

// GetAthleteProfile retrieves the athlete profile of a user
func (s *Store) GetAthleteProfile(ctx context.Context, userID int64) (*fitness.AthleteProfile, error) {
	query := s.rebind(`SELECT sport, position, team, fitness_level FROM athlete_profiles WHERE user_id = ?`)

	p := &fitness.AthleteProfile{UserID: userID}
	var level string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&p.Sport, &p.Position, &p.Team, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete profile: %w", err)
	}
	p.FitnessLevel = fitness.FitnessLevel(level)
	return p, nil
}

// ListCoachedAthletes returns the athletes in an active relationship with a coach
func (s *Store) ListCoachedAthletes(ctx context.Context, coachID int64) ([]fitness.CoachedAthlete, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.first_name, u.last_name, u.email,
			COALESCE(ap.sport, ''), COALESCE(ap.team, '')
		FROM coach_athletes ca
		JOIN users u ON u.id = ca.athlete_id
		LEFT JOIN athlete_profiles ap ON ap.user_id = u.id
		WHERE ca.coach_id = ? AND ca.status = 'active'
		ORDER BY u.last_name, u.first_name, u.id`)

	rows, err := s.db.QueryContext(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coached athletes: %w", err)
	}
	defer rows.Close()

	athletes := make([]fitness.CoachedAthlete, 0)
	for rows.Next() {
		var (
			a     fitness.CoachedAthlete
			email sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.FirstName, &a.LastName, &email, &a.Sport, &a.Team); err != nil {
			return nil, fmt.Errorf("failed to scan coached athlete: %w", err)
		}
		a.Email = stringPtr(email)
		athletes = append(athletes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coached athletes: %w", err)
	}
	return athletes, nil
}

// AddCoachedAthlete links an athlete to a coach, reactivating an existing link
func (s *Store) AddCoachedAthlete(ctx context.Context, coachID, athleteID int64) error {
	query := s.rebind(`
		INSERT INTO coach_athletes (coach_id, athlete_id, status, created_at)
		VALUES (?, ?, 'active', ?)
		ON CONFLICT (coach_id, athlete_id) DO UPDATE SET status = 'active'`)

	if _, err := s.db.ExecContext(ctx, query, coachID, athleteID, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to link athlete %d to coach %d: %w", athleteID, coachID, err)
	}
	return nil
}

// EmailTaken reports whether another user already uses email
func (s *Store) EmailTaken(ctx context.Context, email string, excludeUserID int64) (bool, error) {
	query := s.rebind(`SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, email, excludeUserID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile applies the non-nil fields of u to the user row and, when
// u.Athlete is set, upserts the athlete profile
func (s *Store) UpdateProfile(ctx context.Context, userID int64, u fitness.ProfileUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Email != nil {
		add("email", nullString(u.Email))
	}
	if u.University != nil {
		add("university", *u.University)
	}
	if u.Age != nil {
		add("age", *u.Age)
	}
	if u.Weight != nil {
		add("weight", *u.Weight)
	}
	if u.Height != nil {
		add("height", *u.Height)
	}
	add("updated_at", s.now().Unix())
	args = append(args, userID)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := s.rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return translate(err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrNotFound
		}

		if u.Athlete == nil {
			return nil
		}

		upsert := s.rebind(`
			INSERT INTO athlete_profiles (user_id, sport, position, team, fitness_level)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				sport = excluded.sport,
				position = excluded.position,
				team = excluded.team,
				fitness_level = excluded.fitness_level`)
		_, err = tx.ExecContext(ctx, upsert,
			userID, u.Athlete.Sport, u.Athlete.Position, u.Athlete.Team, string(u.Athlete.FitnessLevel))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", userID, err)
	}
	return nil
}
