// Package fitness holds the domain types shared by the stores, the
// authenticator and the HTTP handlers: users, athlete profiles, workout
// sessions with biometric samples, and goals with derived progress.
package fitness
