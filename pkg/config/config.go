package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/session"
	"github.com/laot-fitness/laot/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Ledger backends
const (
	LedgerSQL   = "sql"
	LedgerRedis = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Lockout       LockoutConfig       `yaml:"lockout"`
	Session       SessionConfig       `yaml:"session"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Janitor       JanitorConfig       `yaml:"janitor"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// TrustProxyHeaders resolves client IPs from X-Forwarded-For and friends.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
	// CookieSecure forces Secure session cookies behind a TLS-terminating proxy
	CookieSecure bool `yaml:"cookie_secure"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// LockoutConfig holds the failed-login policy
type LockoutConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	Window        time.Duration `yaml:"window"`
	Retention     time.Duration `yaml:"retention"`
	UsernameScope string        `yaml:"username_scope"`
	// Backend selects where attempts are stored: "sql" or "redis"
	Backend string `yaml:"backend"`
}

// SessionConfig holds web session settings
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	CookieTTL   time.Duration `yaml:"cookie_ttl"`
	Capacity    int           `yaml:"capacity"`
}

// RateLimitConfig holds the per-IP request throttle in front of /api/auth
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
	// Distributed keeps counters in Redis so limits hold across instances
	Distributed bool `yaml:"distributed"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// JanitorConfig holds the attempt purge schedule
type JanitorConfig struct {
	// Schedule is a standard five-field cron expression
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	lock := lockout.DefaultConfig()
	sess := session.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL: auth.DefaultTokenTTL,
		},
		Lockout: LockoutConfig{
			MaxAttempts:   lock.MaxAttempts,
			Window:        lock.Window,
			Retention:     lock.Retention,
			UsernameScope: string(lock.UsernameScope),
			Backend:       LedgerSQL,
		},
		Session: SessionConfig{
			IdleTimeout: sess.IdleTimeout,
			CookieTTL:   sess.CookieTTL,
			Capacity:    sess.Capacity,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "laot",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Janitor: JanitorConfig{
			Schedule: "*/15 * * * *",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by LAOT_CONFIG_FILE, and LAOT_* environment variables, in that order
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("LAOT_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("LAOT_HOST", s.Host)
	s.Port = getEnv("LAOT_PORT", s.Port)
	s.HealthPort = getEnv("LAOT_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("LAOT_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("LAOT_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("LAOT_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("LAOT_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("LAOT_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.CORSOrigins = getEnvList("LAOT_CORS_ORIGINS", s.CORSOrigins)
	s.TrustProxyHeaders = getEnvBool("LAOT_TRUST_PROXY_HEADERS", s.TrustProxyHeaders)
	s.CookieSecure = getEnvBool("LAOT_COOKIE_SECURE", s.CookieSecure)

	st := &c.Storage
	st.Driver = getEnv("LAOT_DB_DRIVER", st.Driver)
	st.DSN = getEnv("LAOT_DB_DSN", st.DSN)
	st.MaxOpenConns = getEnvInt("LAOT_DB_MAX_OPEN_CONNS", st.MaxOpenConns)
	st.MaxIdleConns = getEnvInt("LAOT_DB_MAX_IDLE_CONNS", st.MaxIdleConns)
	st.ConnMaxLifetime = getEnvDuration("LAOT_DB_CONN_MAX_LIFETIME", st.ConnMaxLifetime)
	st.Timeout = getEnvDuration("LAOT_DB_TIMEOUT", st.Timeout)
	st.MigrateOnStart = getEnvBool("LAOT_DB_MIGRATE", st.MigrateOnStart)
	st.RedisURL = getEnv("LAOT_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("LAOT_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("LAOT_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("LAOT_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("LAOT_REDIS_POOL_SIZE", st.RedisPoolSize)

	c.Auth.JWTSecret = getEnv("LAOT_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvDuration("LAOT_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.BcryptCost = getEnvInt("LAOT_BCRYPT_COST", c.Auth.BcryptCost)

	l := &c.Lockout
	l.MaxAttempts = getEnvInt("LAOT_LOCKOUT_MAX_ATTEMPTS", l.MaxAttempts)
	l.Window = getEnvDuration("LAOT_LOCKOUT_WINDOW", l.Window)
	l.Retention = getEnvDuration("LAOT_LOCKOUT_RETENTION", l.Retention)
	l.UsernameScope = getEnv("LAOT_LOCKOUT_USERNAME_SCOPE", l.UsernameScope)
	l.Backend = getEnv("LAOT_LEDGER_BACKEND", l.Backend)

	c.Session.IdleTimeout = getEnvDuration("LAOT_SESSION_IDLE_TIMEOUT", c.Session.IdleTimeout)
	c.Session.CookieTTL = getEnvDuration("LAOT_SESSION_COOKIE_TTL", c.Session.CookieTTL)
	c.Session.Capacity = getEnvInt("LAOT_SESSION_CAPACITY", c.Session.Capacity)

	r := &c.RateLimit
	r.Enabled = getEnvBool("LAOT_RATE_LIMIT_ENABLED", r.Enabled)
	r.RequestsPerMinute = getEnvInt("LAOT_RATE_LIMIT_RPM", r.RequestsPerMinute)
	r.Burst = getEnvInt("LAOT_RATE_LIMIT_BURST", r.Burst)
	r.Distributed = getEnvBool("LAOT_RATE_LIMIT_DISTRIBUTED", r.Distributed)

	o := &c.Observability
	o.LogLevel = getEnv("LAOT_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("LAOT_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("LAOT_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("LAOT_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("LAOT_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("LAOT_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("LAOT_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("LAOT_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	c.Janitor.Schedule = getEnv("LAOT_JANITOR_SCHEDULE", c.Janitor.Schedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("invalid storage driver: %s (must be postgres or sqlite)", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage DSN is required")
	}

	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes (set LAOT_JWT_SECRET)", auth.MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if err := c.LockoutPolicy().Validate(); err != nil {
		return err
	}
	switch c.Lockout.Backend {
	case LedgerSQL:
	case LedgerRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis ledger backend")
		}
	default:
		return fmt.Errorf("invalid ledger backend: %s (must be sql or redis)", c.Lockout.Backend)
	}

	if c.Session.IdleTimeout <= 0 || c.Session.CookieTTL <= 0 || c.Session.Capacity <= 0 {
		return fmt.Errorf("session idle timeout, cookie TTL and capacity must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit requests per minute must be positive")
		}
		if c.RateLimit.Distributed && c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for distributed rate limiting")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// LockoutPolicy converts the lockout section for lockout.NewGuard
func (c *Config) LockoutPolicy() *lockout.Config {
	return &lockout.Config{
		MaxAttempts:   c.Lockout.MaxAttempts,
		Window:        c.Lockout.Window,
		Retention:     c.Lockout.Retention,
		UsernameScope: lockout.UsernameScope(c.Lockout.UsernameScope),
	}
}

// SessionManagerConfig converts the session section for session.NewManager
func (c *Config) SessionManagerConfig() *session.Config {
	cfg := session.DefaultConfig()
	cfg.IdleTimeout = c.Session.IdleTimeout
	cfg.CookieTTL = c.Session.CookieTTL
	cfg.Capacity = c.Session.Capacity
	cfg.ForceSecure = c.Server.CookieSecure
	return cfg
}

// OTel converts the observability section for observability.InitOTel
func (c *Config) OTel() observability.OTelConfig {
	o := c.Observability
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLevel(c.Observability.LogLevel)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
// Bare integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty elements
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
