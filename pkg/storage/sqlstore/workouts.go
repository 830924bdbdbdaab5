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

const workoutColumns = `id, athlete_id, session_date, start_time, end_time, duration_minutes,
	workout_type, notes, created_at`

func scanWorkout(row rowScanner) (*fitness.WorkoutSession, error) {
	var (
		w         fitness.WorkoutSession
		start     sql.NullInt64
		end       sql.NullInt64
		duration  sql.NullInt64
		createdAt int64
	)
	err := row.Scan(&w.ID, &w.AthleteID, &w.SessionDate, &start, &end, &duration,
		&w.WorkoutType, &w.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	w.StartTime = unixPtr(start)
	w.EndTime = unixPtr(end)
	w.DurationMinutes = intPtr(duration)
	w.CreatedAt = fromUnix(createdAt)
	return &w, nil
}

// ListWorkouts returns a page of an athlete's sessions, newest first, with
// their biometric samples, plus the total number of sessions
func (s *Store) ListWorkouts(ctx context.Context, athleteID int64, limit, offset int) ([]fitness.WorkoutSession, int, error) {
	var total int
	countQuery := s.rebind(`SELECT COUNT(*) FROM workout_sessions WHERE athlete_id = ?`)
	if err := s.db.QueryRowContext(ctx, countQuery, athleteID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count workouts: %w", err)
	}

	sessions, err := s.queryWorkouts(ctx, s.rebind(`
		SELECT `+workoutColumns+` FROM workout_sessions
		WHERE athlete_id = ?
		ORDER BY session_date DESC, created_at DESC, id DESC
		LIMIT ? OFFSET ?`), athleteID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if err := s.attachBiometrics(ctx, sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *Store) queryWorkouts(ctx context.Context, query string, args ...any) ([]fitness.WorkoutSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	defer rows.Close()

	sessions := make([]fitness.WorkoutSession, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		sessions = append(sessions, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}
	return sessions, nil
}

// attachBiometrics loads the samples for sessions in one query
func (s *Store) attachBiometrics(ctx context.Context, sessions []fitness.WorkoutSession) error {
	if len(sessions) == 0 {
		return nil
	}

	ids := make([]any, len(sessions))
	index := make(map[int64]int, len(sessions))
	for i, w := range sessions {
		ids[i] = w.ID
		index[w.ID] = i
	}

	query := s.rebind(`
		SELECT session_id, heart_rate, pace, distance, calories_burned, steps, recorded_at
		FROM biometric_data
		WHERE session_id IN (` + placeholders(len(ids)) + `)
		ORDER BY recorded_at, id`)

	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("failed to load biometrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID  int64
			heartRate  sql.NullInt64
			pace       sql.NullFloat64
			distance   sql.NullFloat64
			calories   sql.NullInt64
			steps      sql.NullInt64
			recordedAt int64
		)
		if err := rows.Scan(&sessionID, &heartRate, &pace, &distance, &calories, &steps, &recordedAt); err != nil {
			return fmt.Errorf("failed to scan biometric sample: %w", err)
		}
		i, ok := index[sessionID]
		if !ok {
			continue
		}
		sessions[i].Biometrics = append(sessions[i].Biometrics, fitness.BiometricSample{
			HeartRate:      intPtr(heartRate),
			Pace:           floatPtr(pace),
			Distance:       floatPtr(distance),
			CaloriesBurned: intPtr(calories),
			Steps:          intPtr(steps),
			RecordedAt:     fromUnix(recordedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate biometrics: %w", err)
	}
	return nil
}

// CreateWorkout inserts a session and its samples in one transaction.
// Duration is derived from the start and end times.
func (s *Store) CreateWorkout(ctx context.Context, w *fitness.WorkoutSession) (*fitness.WorkoutSession, error) {
	created := *w
	created.CreatedAt = s.now().UTC().Truncate(time.Second)
	created.DurationMinutes = fitness.DurationMinutes(w.StartTime, w.EndTime)
	created.Biometrics = append([]fitness.BiometricSample(nil), w.Biometrics...)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		insert := s.rebind(`
			INSERT INTO workout_sessions (athlete_id, session_date, start_time, end_time,
				duration_minutes, workout_type, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		err := tx.QueryRowContext(ctx, insert,
			created.AthleteID, created.SessionDate, nullUnix(created.StartTime), nullUnix(created.EndTime),
			nullInt(created.DurationMinutes), created.WorkoutType, created.Notes, created.CreatedAt.Unix(),
		).Scan(&created.ID)
		if err != nil {
			return err
		}

		sample := s.rebind(`
			INSERT INTO biometric_data (session_id, athlete_id, heart_rate, pace, distance,
				calories_burned, steps, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		for i, b := range created.Biometrics {
			recorded := b.RecordedAt
			if recorded.IsZero() {
				recorded = created.CreatedAt
				created.Biometrics[i].RecordedAt = recorded
			}
			_, err := tx.ExecContext(ctx, sample,
				created.ID, created.AthleteID, nullInt(b.HeartRate), nullFloat(b.Pace), nullFloat(b.Distance),
				nullInt(b.CaloriesBurned), nullInt(b.Steps), recorded.Unix())
			if err != nil {
				return fmt.Errorf("failed to insert biometric sample %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workout: %w", err)
	}
	return &created, nil
}

// GetWorkout retrieves a session owned by athleteID
func (s *Store) GetWorkout(ctx context.Context, id, athleteID int64) (*fitness.WorkoutSession, error) {
	query := s.rebind(`SELECT ` + workoutColumns + ` FROM workout_sessions WHERE id = ? AND athlete_id = ?`)

	w, err := scanWorkout(s.db.QueryRowContext(ctx, query, id, athleteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workout %d: %w", id, err)
	}

	sessions := []fitness.WorkoutSession{*w}
	if err := s.attachBiometrics(ctx, sessions); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// UpdateWorkout applies u to a session owned by athleteID and recomputes its duration
func (s *Store) UpdateWorkout(ctx context.Context, id, athleteID int64, u fitness.WorkoutUpdate) (*fitness.WorkoutSession, error) {
	current, err := s.GetWorkout(ctx, id, athleteID)
	if err != nil {
		return nil, err
	}

	if u.EndTime != nil {
		end := u.EndTime.UTC()
		current.EndTime = &end
	}
	if u.WorkoutType != nil {
		current.WorkoutType = *u.WorkoutType
	}
	if u.Notes != nil {
		current.Notes = *u.Notes
	}
	current.DurationMinutes = fitness.DurationMinutes(current.StartTime, current.EndTime)

	query := s.rebind(`
		UPDATE workout_sessions
		SET end_time = ?, duration_minutes = ?, workout_type = ?, notes = ?
		WHERE id = ? AND athlete_id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		nullUnix(current.EndTime), nullInt(current.DurationMinutes), current.WorkoutType, current.Notes,
		id, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to update workout %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, storage.ErrNotFound
	}
	return current, nil
}
