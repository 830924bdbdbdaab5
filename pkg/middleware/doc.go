// Package middleware provides HTTP middleware for authentication, sessions,
// and request throttling.
//
// # Middleware Components
//
// AuthMiddleware: Bearer token authentication
//
//	auth := middleware.NewAuthMiddleware(tokens, store, metrics, logger)
//	api.Use(auth.Handler)
//	// Verifies the JWT, re-loads the user, adds auth.Identity to the context
//
// RequireRole: role gate for bearer or session routes
//
//	coach.Use(middleware.RequireRole(fitness.RoleCoach))
//
// RequireSession / RequireCSRF: cookie session flow
//
//	web.Use(middleware.RequireSession(sessions), middleware.RequireCSRF(sessions))
//
// ClientIPMiddleware: resolves the caller address once per request
//
//	router.Use(middleware.ClientIPMiddleware(cfg.TrustProxyHeaders))
//
// Throttle: in-memory per-IP token buckets (golang.org/x/time/rate)
//
//	throttle := middleware.NewThrottle(middleware.DefaultRateLimitConfig())
//	throttle.StartCleanup(ctx)
//	authRoutes.Use(throttle.Handler)
//
// DistributedThrottle: Redis fixed-window counters shared across instances
//
//	throttle := middleware.NewDistributedThrottle(redisClient, nil, "", logger)
//
// # Throttling versus lockout
//
// Throttles bound request volume per IP regardless of outcome. Account
// lockout after repeated failed logins lives in pkg/lockout and is enforced
// by the authenticator, not here.
package middleware
