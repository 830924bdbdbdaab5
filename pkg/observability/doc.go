// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry setup.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout).WithService("laot-server")
//	logger.WithField("username", username).WithField("ip", ip).Warn("Login locked out")
//
// Request-scoped loggers carry the request ID, and fields named like
// credentials (password, token, secret) are written as [REDACTED]:
//
//	logger.WithContext(r.Context()).WithField("user_id", id).Info("Profile updated")
//
// # Prometheus Metrics
//
// Metrics implements the auth.Metrics hooks, so the authenticator and the
// bearer middleware count outcomes without importing Prometheus:
//
//	metrics := observability.NewMetrics(registry)
//	authn, _ := auth.NewAuthenticator(auth.Dependencies{Metrics: metrics, ...})
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, ledgerInRedis)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// Redis is only critical when it holds the attempt ledger; otherwise a Redis
// outage reports degraded.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer providers.Shutdown(ctx)
package observability
