// Package config loads service configuration from defaults, an optional
// YAML file, and environment variables.
//
// # Precedence
//
// Defaults are overlaid by the YAML file named in LAOT_CONFIG_FILE, and
// LAOT_* variables override both. Validate runs last.
//
// # Environment
//
// Server settings:
//
//	LAOT_HOST="0.0.0.0"
//	LAOT_PORT="8080"
//	LAOT_HEALTH_PORT="9090"
//	LAOT_TRUST_PROXY_HEADERS="false"
//	LAOT_COOKIE_SECURE="false"
//
// Storage settings:
//
//	LAOT_DB_DRIVER="postgres"  # postgres, sqlite
//	LAOT_DB_DSN="postgres://laot@localhost/laot?sslmode=disable"
//	LAOT_REDIS_URL="redis://localhost:6379"
//
// Auth and lockout settings:
//
//	LAOT_JWT_SECRET="<at least 32 bytes>"
//	LAOT_TOKEN_TTL="24h"
//	LAOT_LOCKOUT_MAX_ATTEMPTS="5"
//	LAOT_LOCKOUT_WINDOW="900s"
//	LAOT_LOCKOUT_USERNAME_SCOPE="ip"  # ip, global
//	LAOT_LEDGER_BACKEND="sql"         # sql, redis
//
// Observability settings:
//
//	LAOT_LOG_LEVEL="info"  # debug, info, warn, error
//	LAOT_METRICS_ENABLED="true"
//	LAOT_OTEL_ENABLED="false"
//
// # YAML
//
//	server:
//	  port: "8080"
//	  trust_proxy_headers: true
//	lockout:
//	  window: 15m
//	  backend: redis
//	storage:
//	  redis_url: redis://redis:6379
package config
