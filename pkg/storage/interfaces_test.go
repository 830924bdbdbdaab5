package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Contains(t, cfg.DSN, "foreign_keys(ON)")
	assert.Equal(t, 20, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 3, cfg.RedisMaxRetries)
	assert.Equal(t, 10, cfg.RedisPoolSize)
}

func TestSentinelErrorsWrap(t *testing.T) {
	err := fmt.Errorf("create user alice01: %w", ErrDuplicate)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.False(t, errors.Is(err, ErrNotFound))
}
