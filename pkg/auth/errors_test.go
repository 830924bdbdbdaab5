package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/stretchr/testify/assert"
)

func TestLockoutError(t *testing.T) {
	tests := []struct {
		remaining   time.Duration
		wantMinutes string
		wantSeconds int
	}{
		{900 * time.Second, "15", 900},
		{899 * time.Second, "15", 899},
		{61 * time.Second, "2", 61},
		{60 * time.Second, "1", 60},
		{1500 * time.Millisecond, "1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.remaining.String(), func(t *testing.T) {
			err := LockoutError(lockout.Status{Locked: true, Remaining: tt.remaining})
			assert.Equal(t, KindLockout, err.Kind)
			assert.Equal(t, "Too many failed attempts. Try again in "+tt.wantMinutes+" minutes", err.Message)
			assert.Equal(t, tt.wantSeconds, err.RemainingSeconds)
		})
	}
}

func TestError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("login: %w", StoreError(cause))

	assert.True(t, IsKind(err, KindStore))
	assert.False(t, IsKind(err, KindAuth))
	assert.ErrorIs(t, err, cause)

	var authErr *Error
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, MsgInternal, authErr.Message)
	assert.Contains(t, authErr.Error(), "connection refused")

	assert.Equal(t, MsgInvalidCredentials, AuthError(nil).Error())
	assert.False(t, IsKind(cause, KindStore))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "input", KindInput.String())
	assert.Equal(t, "auth", KindAuth.String())
	assert.Equal(t, "lockout", KindLockout.String())
	assert.Equal(t, "store", KindStore.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
