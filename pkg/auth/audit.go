package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/laot-fitness/laot/pkg/observability"
)

// Audit actions
const (
	ActionLogin        = "auth.login"
	ActionRegister     = "auth.register"
	ActionSessionStart = "session.start"
	ActionSessionEnd   = "session.end"
)

// Audit statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusBlocked = "blocked"
)

// AuditEvent is one security-relevant action
type AuditEvent struct {
	Action   string
	Status   string
	UserID   int64
	Username string
	IP       string
	Reason   string
	At       time.Time
}

// AuditLogger writes audit events to the structured log. Passwords and
// tokens are never part of an event.
type AuditLogger struct {
	logger *observability.Logger
	now    func() time.Time
}

// NewAuditLogger creates an audit logger writing through logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &AuditLogger{
		logger: logger.WithField("component", "audit"),
		now:    time.Now,
	}
}

// LogAction logs an audit event
func (al *AuditLogger) LogAction(ctx context.Context, event *AuditEvent) error {
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}
	if event.Status == "" {
		return fmt.Errorf("status is required")
	}
	if event.At.IsZero() {
		event.At = al.now()
	}

	fields := map[string]interface{}{
		"action":   event.Action,
		"status":   event.Status,
		"username": event.Username,
		"ip":       event.IP,
		"at":       event.At.UTC().Format(time.RFC3339),
	}
	if event.UserID > 0 {
		fields["user_id"] = event.UserID
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	logger := al.logger.WithContext(ctx).WithFields(fields)
	if event.Status == StatusSuccess {
		logger.Info("audit")
	} else {
		logger.Warn("audit")
	}
	return nil
}
