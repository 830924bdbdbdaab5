package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager runs registered cleanup in reverse registration order,
// so resources opened first are released last
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration
	funcs   []namedShutdown
	mu      sync.Mutex
	once    sync.Once
	err     error
}

// NewShutdownManager creates a new shutdown manager. A zero timeout means 30s.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a named cleanup step
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedShutdown{name: name, fn: fn})
}

// Shutdown runs every step once, even when earlier steps fail, and joins
// their errors. Later calls return the first result.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, sm.timeout)
		defer cancel()

		sm.mu.Lock()
		funcs := append([]namedShutdown(nil), sm.funcs...)
		sm.mu.Unlock()

		var errs []error
		for i := len(funcs) - 1; i >= 0; i-- {
			step := funcs[i]
			if err := step.fn(ctx); err != nil {
				sm.logger.WithError(err).WithField("step", step.name).Error("Shutdown step failed")
				errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
				continue
			}
			sm.logger.WithField("step", step.name).Debug("Shutdown step complete")
		}

		sm.err = errors.Join(errs...)
		if sm.err == nil {
			sm.logger.Info("Graceful shutdown complete")
		}
	})
	return sm.err
}
