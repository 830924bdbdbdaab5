package auth

import (
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
)

// Identity is the authenticated caller attached to a request
type Identity struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Role     fitness.Role `json:"user_role"`
}

// IdentityOf returns the identity of u
func IdentityOf(u *fitness.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// HasRole reports whether the identity has one of roles
func (i Identity) HasRole(roles ...fitness.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// LoginRequest is a login attempt. IP is resolved by the transport.
type LoginRequest struct {
	Username string
	Password string
	IP       string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	User      *fitness.User
	Token     string
	ExpiresAt time.Time

	// Profile is set for athletes that have a profile row
	Profile *fitness.AthleteProfile
	// Athletes is set for coaches
	Athletes []fitness.CoachedAthlete
}

// RegisterRequest creates an account. Only Username and Password are needed
// for a simple registration; any other field switches to full registration,
// where first name, last name, email and university are required.
type RegisterRequest struct {
	Username string
	Password string
	Role     fitness.Role

	FirstName  string
	LastName   string
	Email      *string
	University string
	Age        *int
	Weight     *float64
	Height     *string

	// Profile overrides the default athlete profile field by field
	Profile *fitness.AthleteProfile

	IP string
}

// Simple reports whether only credentials were supplied
func (r *RegisterRequest) Simple() bool {
	return r.Role == "" && r.FirstName == "" && r.LastName == "" && r.Email == nil &&
		r.University == "" && r.Age == nil && r.Weight == nil && r.Height == nil &&
		r.Profile == nil
}

// RegisterResult is returned by a successful registration
type RegisterResult struct {
	User      *fitness.User
	Token     string
	ExpiresAt time.Time
	Profile   *fitness.AthleteProfile
}
