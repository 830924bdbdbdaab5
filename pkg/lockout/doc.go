// Package lockout implements brute-force protection for credential checks.
//
// Every login attempt is appended to a Ledger. Before a credential is
// verified the Guard counts recent failures for the caller's IP address and
// for the attempted username; if either has reached MaxAttempts within Window
// the caller is locked out until the most recent failure ages out.
//
// The ledger is the only source of truth. Nothing is counted in process, so
// several server instances sharing a SQL database or Redis see the same state.
package lockout
