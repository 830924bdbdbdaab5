// Package redisstore keeps the login attempt ledger in Redis sorted sets.
//
// Every attempt is added to a log set; failures are also added to one set
// per lockout key (IP, IP+username and username). Scores are attempt times
// in unix milliseconds, so window counts are ZCOUNT range queries and purges
// are ZREMRANGEBYSCORE calls. Keys carry an expiry of the retention horizon
// so idle keys disappear without a purge.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/laot-fitness/laot/pkg/lockout"
)

const defaultPrefix = "laot:attempts"

// Compile-time interface checks
var (
	_ lockout.Ledger        = (*Ledger)(nil)
	_ lockout.AttemptPurger = (*Ledger)(nil)
)

// Ledger implements lockout.Ledger on Redis
type Ledger struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewLedger creates a Redis ledger. An empty prefix uses "laot:attempts".
func NewLedger(client *redis.Client, prefix string, retention time.Duration) *Ledger {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if retention <= 0 {
		retention = lockout.DefaultConfig().Retention
	}
	return &Ledger{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (l *Ledger) logKey() string {
	return l.prefix + ":log"
}

// failKey returns the sorted set holding failures for key
func (l *Ledger) failKey(key lockout.Key) string {
	switch {
	case key.IP != "" && key.Username != "":
		return fmt.Sprintf("%s:fail:ipuser:%s|%s", l.prefix, key.IP, key.Username)
	case key.Username != "":
		return fmt.Sprintf("%s:fail:user:%s", l.prefix, key.Username)
	default:
		return fmt.Sprintf("%s:fail:ip:%s", l.prefix, key.IP)
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Append records an attempt in one MULTI/EXEC transaction
func (l *Ledger) Append(ctx context.Context, a lockout.Attempt) error {
	id := uuid.NewString()
	member := strings.Join([]string{a.IP, a.Username, strconv.FormatBool(a.Success), id}, "|")
	at := score(a.At)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, l.logKey(), &redis.Z{Score: at, Member: member})
		pipe.Expire(ctx, l.logKey(), l.retention)

		if a.Success {
			return nil
		}
		for _, k := range attemptKeys(a) {
			fk := l.failKey(k)
			pipe.ZAdd(ctx, fk, &redis.Z{Score: at, Member: id})
			pipe.Expire(ctx, fk, l.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// attemptKeys lists the lockout keys whose failure sets a belongs to
func attemptKeys(a lockout.Attempt) []lockout.Key {
	keys := []lockout.Key{{IP: a.IP}}
	if a.Username != "" {
		keys = append(keys, lockout.Key{IP: a.IP, Username: a.Username}, lockout.Key{Username: a.Username})
	}
	return keys
}

// FailureStats counts failures for key strictly after since
func (l *Ledger) FailureStats(ctx context.Context, key lockout.Key, since time.Time) (lockout.Stats, error) {
	fk := l.failKey(key)
	lower := "(" + strconv.FormatInt(since.UnixMilli(), 10)

	pipe := l.client.Pipeline()
	count := pipe.ZCount(ctx, fk, lower, "+inf")
	last := pipe.ZRevRangeByScoreWithScores(ctx, fk, &redis.ZRangeBy{Min: lower, Max: "+inf", Count: 1})
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return lockout.Stats{}, fmt.Errorf("failed to count failed attempts: %w", err)
	}

	stats := lockout.Stats{Failures: int(count.Val())}
	if zs := last.Val(); len(zs) > 0 {
		stats.LastFailure = time.UnixMilli(int64(zs[0].Score))
	}
	return stats, nil
}

// PurgeBefore removes attempts older than cutoff from the log and every
// failure set. It scans the whole failure keyspace and is meant for the
// janitor. The returned count covers the log only.
func (l *Ledger) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)

	removed, err := l.client.ZRemRangeByScore(ctx, l.logKey(), "-inf", upper).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge attempt log: %w", err)
	}

	iter := l.client.Scan(ctx, 0, l.prefix+":fail:*", 200).Iterator()
	for iter.Next(ctx) {
		if err := l.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Err(); err != nil {
			return removed, fmt.Errorf("failed to purge %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan failure keys: %w", err)
	}

	return removed, nil
}

// PurgeAttempt trims the log and the failure sets of a's keys. The number of
// commands is fixed, however many addresses the ledger has seen.
func (l *Ledger) PurgeAttempt(ctx context.Context, a lockout.Attempt, cutoff time.Time) error {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, l.logKey(), "-inf", upper)
	for _, k := range attemptKeys(a) {
		pipe.ZRemRangeByScore(ctx, l.failKey(k), "-inf", upper)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to trim attempt keys: %w", err)
	}
	return nil
}
