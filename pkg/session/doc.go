// Package session keeps server-side sessions for the browser login flow.
//
// A session is created by Manager.Start after a successful authentication
// and is referenced by an HttpOnly, SameSite=Strict cookie. Sessions idle
// for longer than the configured timeout are destroyed on the next Load.
// Each session carries a CSRF token that state-changing requests echo back
// in the X-CSRF-Token header.
package session
