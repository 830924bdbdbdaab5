// Package api provides the HTTP REST API of the fitness tracker.
//
// # Overview
//
// The API is built on gorilla/mux and organized into handler groups:
//
//   - Authentication: register, login and the current identity (/api/auth)
//   - Profile: the caller's user record, athlete profile and goals (/api/profile)
//   - Workouts: paginated workout sessions with biometric samples (/api/workouts)
//   - Goals: goals with progress and statistics (/api/goals)
//   - Web sessions: cookie login for browser clients (/web)
//
// Every response uses the envelope written by pkg/httputil:
//
//	{"success": true, "message": "...", "data": {...}, "timestamp": "2026-03-14 09:30:00"}
//
// # Wiring
//
//	server, err := api.NewServer(api.Dependencies{
//	    Auth:     authenticator,
//	    Store:    store,
//	    Sessions: sessions,
//	    Metrics:  metrics,
//	    Throttle: middleware.NewThrottle(nil),
//	    Logger:   logger,
//	}, api.DefaultOptions())
//	http.ListenAndServe(":8080", server.Handler())
//
// # Errors
//
// Authentication failures are *auth.Error values and map onto status codes
// in one place (writeAuthError): input 400 (409 for duplicates), credentials
// 401, lockout 429 with Retry-After, store 500. Rows that do not exist or
// belong to another athlete are reported as 404 so ownership is not leaked.
package api
