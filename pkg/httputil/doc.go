// Package httputil provides the HTTP plumbing shared by the API handlers.
//
// # Responses
//
// Every JSON response is wrapped in an envelope:
//
//	{"success": true, "message": "Login successful", "data": {...}, "timestamp": "2026-03-14 09:30:00"}
//
// Helpers:
//
//	httputil.WriteSuccess(w, "Goals retrieved successfully", data)
//	httputil.WriteCreated(w, "Goal created successfully", goal)
//	httputil.WriteBadRequest(w, "Invalid goal type")
//	httputil.WriteInternalError(w) // never leaks the cause
//
// # Requests
//
//	var req loginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	ip := httputil.ClientIP(r, trustProxyHeaders)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.SecurityHeadersMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: bearer authentication, role checks and request throttling
package httputil
