package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/storage"
)

const goalColumns = `id, athlete_id, goal_type, target_value, current_value, target_date, is_completed, created_at`

func (s *Store) scanGoal(row rowScanner) (*fitness.Goal, error) {
	var (
		g          fitness.Goal
		goalType   string
		targetDate sql.NullString
		createdAt  int64
	)
	err := row.Scan(&g.ID, &g.AthleteID, &goalType, &g.TargetValue, &g.CurrentValue,
		&targetDate, &g.IsCompleted, &createdAt)
	if err != nil {
		return nil, err
	}

	g.GoalType = fitness.GoalType(goalType)
	g.CreatedAt = fromUnix(createdAt)
	if targetDate.Valid {
		d, err := fitness.ParseDate(targetDate.String)
		if err != nil {
			return nil, fmt.Errorf("goal %d: %w", g.ID, err)
		}
		g.TargetDate = &d
	}
	g.Decorate(s.now())
	return &g, nil
}

func nullDate(d *fitness.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// ListGoals returns an athlete's goals, newest first, with derived progress
func (s *Store) ListGoals(ctx context.Context, athleteID int64) ([]fitness.Goal, error) {
	query := s.rebind(`SELECT ` + goalColumns + ` FROM goals WHERE athlete_id = ? ORDER BY created_at DESC, id DESC`)

	rows, err := s.db.QueryContext(ctx, query, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]fitness.Goal, 0)
	for rows.Next() {
		g, err := s.scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}
	return goals, nil
}

// GoalStats counts an athlete's goals by completion
func (s *Store) GoalStats(ctx context.Context, athleteID int64) (fitness.GoalStats, error) {
	query := s.rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0)
		FROM goals WHERE athlete_id = ?`)

	var stats fitness.GoalStats
	if err := s.db.QueryRowContext(ctx, query, athleteID).Scan(&stats.Total, &stats.Completed); err != nil {
		return fitness.GoalStats{}, fmt.Errorf("failed to compute goal statistics: %w", err)
	}
	stats.Active = stats.Total - stats.Completed
	return stats, nil
}

// CreateGoal inserts a new open goal
func (s *Store) CreateGoal(ctx context.Context, g *fitness.Goal) (*fitness.Goal, error) {
	created := *g
	created.IsCompleted = false
	created.CreatedAt = s.now().UTC().Truncate(time.Second)

	query := s.rebind(`
		INSERT INTO goals (athlete_id, goal_type, target_value, current_value, target_date, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := s.db.QueryRowContext(ctx, query,
		created.AthleteID, string(created.GoalType), created.TargetValue, created.CurrentValue,
		nullDate(created.TargetDate), false, created.CreatedAt.Unix(),
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	created.Decorate(s.now())
	return &created, nil
}

// GetGoal retrieves a goal owned by athleteID
func (s *Store) GetGoal(ctx context.Context, id, athleteID int64) (*fitness.Goal, error) {
	query := s.rebind(`SELECT ` + goalColumns + ` FROM goals WHERE id = ? AND athlete_id = ?`)

	g, err := s.scanGoal(s.db.QueryRowContext(ctx, query, id, athleteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %d: %w", id, err)
	}
	return g, nil
}

// UpdateGoal applies the non-nil fields of u to a goal owned by athleteID
func (s *Store) UpdateGoal(ctx context.Context, id, athleteID int64, u fitness.GoalUpdate) (*fitness.Goal, error) {
	if u.Empty() {
		return s.GetGoal(ctx, id, athleteID)
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if u.TargetValue != nil {
		sets = append(sets, "target_value = ?")
		args = append(args, *u.TargetValue)
	}
	if u.CurrentValue != nil {
		sets = append(sets, "current_value = ?")
		args = append(args, *u.CurrentValue)
	}
	if u.TargetDate != nil {
		sets = append(sets, "target_date = ?")
		args = append(args, u.TargetDate.String())
	}
	if u.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, *u.IsCompleted)
	}
	args = append(args, id, athleteID)

	query := s.rebind(`UPDATE goals SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND athlete_id = ?`)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update goal %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, storage.ErrNotFound
	}

	return s.GetGoal(ctx, id, athleteID)
}

// DeleteGoal removes a goal owned by athleteID
func (s *Store) DeleteGoal(ctx context.Context, id, athleteID int64) error {
	query := s.rebind(`DELETE FROM goals WHERE id = ? AND athlete_id = ?`)

	res, err := s.db.ExecContext(ctx, query, id, athleteID)
	if err != nil {
		return fmt.Errorf("failed to delete goal %d: %w", id, err)
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
