package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel is the minimum severity a Logger writes. The values line up with
// slog so a level converts with a plain cast.
type LogLevel slog.Level

const (
	DebugLevel = LogLevel(slog.LevelDebug)
	InfoLevel  = LogLevel(slog.LevelInfo)
	WarnLevel  = LogLevel(slog.LevelWarn)
	ErrorLevel = LogLevel(slog.LevelError)
)

func (l LogLevel) String() string {
	return slog.Level(l).String()
}

// ParseLevel maps a level name to a LogLevel. Unknown names yield InfoLevel.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// redacted lists field names whose values never reach the log output.
var redacted = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"secret":        {},
	"csrf_token":    {},
}

const redactedValue = "[REDACTED]"

func scrub(key string, value interface{}) interface{} {
	if _, ok := redacted[strings.ToLower(key)]; ok {
		return redactedValue
	}
	return value
}

// Logger writes JSON records through slog. Fields attached with WithField or
// WithFields pass through a redaction filter first.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a JSON logger writing records at or above level to output
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slog.Level(level)})
	return &Logger{logger: slog.New(handler)}
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithField returns a logger carrying key
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, scrub(key, value))
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, scrub(k, v))
	}
	return l.with(args...)
}

// WithService tags every record with the emitting binary
func (l *Logger) WithService(name string) *Logger {
	return l.with("service", name)
}

// WithError attaches err under "error". A nil error returns l unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// WithContext attaches the request ID and the active span's trace and span
// IDs carried by ctx. It returns l when ctx carries neither.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var args []interface{}
	if requestID := GetRequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		args = append(args, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	if len(args) == 0 {
		return l
	}
	return l.with(args...)
}

func (l *Logger) Debug(message string) { l.logger.Debug(message) }
func (l *Logger) Info(message string)  { l.logger.Info(message) }
func (l *Logger) Warn(message string)  { l.logger.Warn(message) }
func (l *Logger) Error(message string) { l.logger.Error(message) }

type requestIDKey struct{}

// WithRequestID stores the request ID on ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the request ID stored on ctx, or ""
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}
