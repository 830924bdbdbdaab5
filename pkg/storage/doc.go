// Package storage defines the persistence contracts of the service.
//
// # Overview
//
// The storage layer uses interface segregation so each consumer depends only
// on what it needs:
//
//   - UserReader / UserWriter: credential records (composed into UserStore)
//   - ProfileStore: athlete profiles, coach relationships, profile updates
//   - WorkoutStore: workout sessions and biometric samples
//   - GoalStore: athlete goals and statistics
//   - HealthChecker: backend availability
//
// These compose into Store, which the HTTP layer is built on. The
// authenticator only sees UserStore and ProfileStore.
//
// # Backends
//
// sqlstore implements Store on PostgreSQL (lib/pq) or SQLite
// (modernc.org/sqlite), with embedded golang-migrate migrations per dialect.
// It also implements lockout.Ledger on the login_attempts table.
//
//	store, err := sqlstore.Open(ctx, storage.Config{
//		Driver: "postgres",
//		DSN:    "postgres://laot@localhost/laot?sslmode=disable",
//	})
//
// redisstore implements lockout.Ledger on Redis sorted sets for deployments
// that keep the attempt ledger out of the primary database.
//
// # Errors
//
// Backends translate driver errors into ErrNotFound and ErrDuplicate so
// callers can use errors.Is without importing a driver. Ownership checks are
// part of the query: a row that exists but belongs to another athlete is
// reported as ErrNotFound.
package storage
