package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/laot-fitness/laot/pkg/lockout"
)

// Append records a login attempt with millisecond precision
func (s *Store) Append(ctx context.Context, a lockout.Attempt) error {
	query := s.rebind(`INSERT INTO login_attempts (ip_address, username, attempt_time, success) VALUES (?, ?, ?, ?)`)

	if _, err := s.db.ExecContext(ctx, query, a.IP, a.Username, a.At.UnixMilli(), a.Success); err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}
	return nil
}

// FailureStats counts failed attempts for key strictly after since
func (s *Store) FailureStats(ctx context.Context, key lockout.Key, since time.Time) (lockout.Stats, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(attempt_time), 0) FROM login_attempts
		WHERE success = ? AND attempt_time > ?`
	args := []any{false, since.UnixMilli()}

	if key.IP != "" {
		query += ` AND ip_address = ?`
		args = append(args, key.IP)
	}
	if key.Username != "" {
		query += ` AND username = ?`
		args = append(args, key.Username)
	}

	var (
		count int
		last  int64
	)
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&count, &last); err != nil {
		return lockout.Stats{}, fmt.Errorf("failed to count failed attempts: %w", err)
	}

	stats := lockout.Stats{Failures: count}
	if count > 0 {
		stats.LastFailure = time.UnixMilli(last)
	}
	return stats, nil
}

// PurgeBefore deletes attempts recorded before cutoff
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.rebind(`DELETE FROM login_attempts WHERE attempt_time < ?`)

	res, err := s.db.ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge login attempts: %w", err)
	}
	return rowsAffected(res)
}
