package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/validation"
	"golang.org/x/crypto/bcrypt"
)

// Dependencies wires an Authenticator. Metrics and Logger are optional.
type Dependencies struct {
	Users    storage.UserStore
	Profiles storage.ProfileStore
	Guard    *lockout.Guard
	Tokens   *TokenCodec
	Hasher   *Hasher
	Metrics  Metrics
	Logger   *observability.Logger
}

// Authenticator runs the login and registration flows
type Authenticator struct {
	users     storage.UserStore
	profiles  storage.ProfileStore
	guard     *lockout.Guard
	tokens    *TokenCodec
	hasher    *Hasher
	sanitizer *validation.Sanitizer
	audit     *AuditLogger
	metrics   Metrics
	logger    *observability.Logger
	now       func() time.Time
}

// NewAuthenticator creates an authenticator from deps
func NewAuthenticator(deps Dependencies) (*Authenticator, error) {
	switch {
	case deps.Users == nil:
		return nil, fmt.Errorf("user store is required")
	case deps.Profiles == nil:
		return nil, fmt.Errorf("profile store is required")
	case deps.Guard == nil:
		return nil, fmt.Errorf("lockout guard is required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("token codec is required")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("password hasher is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Authenticator{
		users:     deps.Users,
		profiles:  deps.Profiles,
		guard:     deps.Guard,
		tokens:    deps.Tokens,
		hasher:    deps.Hasher,
		sanitizer: validation.NewSanitizer(),
		audit:     NewAuditLogger(logger),
		metrics:   metrics,
		logger:    logger.WithField("component", "authenticator"),
		now:       time.Now,
	}, nil
}

// WithClock replaces the time used for last-login stamps
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Tokens returns the codec used to mint tokens
func (a *Authenticator) Tokens() *TokenCodec {
	return a.tokens
}

// Login authenticates req and mints a token. Athletes get their profile and
// coaches their active athletes in the result.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := a.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := a.tokens.Issue(IdentityOf(user), a.tokens.TTL())
	if err != nil {
		a.logger.WithError(err).WithField("username", user.Username).Error("Failed to issue token")
		return nil, StoreError(err)
	}

	result := &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}
	a.loadBundle(ctx, result)
	return result, nil
}

// Authenticate runs the credential checks of Login without minting a
// token. The web session flow uses it directly.
func (a *Authenticator) Authenticate(ctx context.Context, req LoginRequest) (*fitness.User, error) {
	username := strings.TrimSpace(req.Username)
	logger := a.logger.WithFields(map[string]interface{}{"username": username, "ip": req.IP})

	status, err := a.guard.IsLockedOut(ctx, req.IP, username)
	if err != nil {
		return nil, a.storeFailure(logger, "Lockout check failed", err)
	}
	if status.Locked {
		if err := a.guard.RecordAttempt(ctx, req.IP, username, false); err != nil {
			return nil, a.storeFailure(logger, "Failed to record blocked attempt", err)
		}
		a.metrics.RecordLogin(OutcomeLockedOut)
		a.metrics.RecordLockout(status.Key.String())
		a.logAudit(ctx, &AuditEvent{Action: ActionLogin, Status: StatusBlocked, Username: username, IP: req.IP, Reason: "locked out by " + status.Key.String()})
		return nil, LockoutError(status)
	}

	if msg := firstInvalid(validation.ValidateUsername(req.Username), validation.ValidatePassword(req.Password)); msg != "" {
		if err := a.guard.RecordAttempt(ctx, req.IP, username, false); err != nil {
			return nil, a.storeFailure(logger, "Failed to record invalid attempt", err)
		}
		a.metrics.RecordLogin(OutcomeInvalidInput)
		return nil, InputError(msg, nil)
	}

	user, err := a.users.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.hasher.CompareDummy(req.Password)
		return nil, a.rejectCredential(ctx, req, username, "unknown user")
	case err != nil:
		return nil, a.storeFailure(logger, "Failed to look up user", err)
	}

	matched := a.hasher.Compare(user.PasswordHash, req.Password)
	switch {
	case !matched:
		return nil, a.rejectCredential(ctx, req, username, "password mismatch")
	case !user.IsActive:
		return nil, a.rejectCredential(ctx, req, username, "account deactivated")
	}

	if err := a.guard.RecordAttempt(ctx, req.IP, username, true); err != nil {
		return nil, a.storeFailure(logger, "Failed to record successful attempt", err)
	}

	now := a.now()
	if err := a.users.TouchLogin(ctx, user.ID, now); err != nil {
		logger.WithError(err).Warn("Failed to update last login")
	} else {
		user.UpdatedAt = now.UTC().Truncate(time.Second)
		lastLogin := user.UpdatedAt
		user.LastLoginAt = &lastLogin
	}

	a.metrics.RecordLogin(OutcomeSuccess)
	a.logAudit(ctx, &AuditEvent{Action: ActionLogin, Status: StatusSuccess, UserID: user.ID, Username: username, IP: req.IP})
	return user, nil
}

func (a *Authenticator) rejectCredential(ctx context.Context, req LoginRequest, username, reason string) error {
	if err := a.guard.RecordAttempt(ctx, req.IP, username, false); err != nil {
		return a.storeFailure(a.logger.WithField("username", username), "Failed to record failed attempt", err)
	}
	a.metrics.RecordLogin(OutcomeInvalidCredentials)
	a.logAudit(ctx, &AuditEvent{Action: ActionLogin, Status: StatusFailure, Username: username, IP: req.IP, Reason: reason})
	return AuthError(errors.New(reason))
}

// loadBundle fills the role-specific part of a login result. Failures leave
// the bundle empty.
func (a *Authenticator) loadBundle(ctx context.Context, result *LoginResult) {
	user := result.User
	logger := a.logger.WithField("user_id", user.ID)

	switch user.Role {
	case fitness.RoleAthlete:
		profile, err := a.profiles.GetAthleteProfile(ctx, user.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.WithError(err).Warn("Failed to load athlete profile")
		}
		result.Profile = profile
	case fitness.RoleCoach:
		athletes, err := a.profiles.ListCoachedAthletes(ctx, user.ID)
		if err != nil {
			logger.WithError(err).Warn("Failed to load coached athletes")
			athletes = []fitness.CoachedAthlete{}
		}
		result.Athletes = athletes
	}
}

// Register validates req, creates the account and mints a token for it
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	newUser, err := a.prepareUser(&req)
	if err != nil {
		a.metrics.RecordRegistration(OutcomeInvalidInput)
		return nil, err
	}
	logger := a.logger.WithFields(map[string]interface{}{"username": newUser.Username, "ip": req.IP})

	exists, err := a.users.UsernameExists(ctx, newUser.Username)
	if err != nil {
		a.metrics.RecordRegistration(OutcomeError)
		return nil, a.storeFailure(logger, "Failed to check username", err)
	}
	if exists {
		a.metrics.RecordRegistration(OutcomeDuplicate)
		return nil, InputError(MsgUsernameExists, storage.ErrDuplicate)
	}
	if newUser.Email != nil {
		taken, err := a.profiles.EmailTaken(ctx, *newUser.Email, 0)
		if err != nil {
			a.metrics.RecordRegistration(OutcomeError)
			return nil, a.storeFailure(logger, "Failed to check email", err)
		}
		if taken {
			a.metrics.RecordRegistration(OutcomeDuplicate)
			return nil, InputError(MsgEmailExists, storage.ErrDuplicateEmail)
		}
	}

	hash, err := a.hasher.Hash(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		a.metrics.RecordRegistration(OutcomeInvalidInput)
		return nil, InputError(MsgPasswordTooLong, err)
	}
	if err != nil {
		a.metrics.RecordRegistration(OutcomeError)
		return nil, a.storeFailure(logger, "Failed to hash password", err)
	}
	newUser.PasswordHash = hash

	user, err := a.users.CreateUser(ctx, newUser)
	switch {
	case errors.Is(err, storage.ErrDuplicateEmail):
		a.metrics.RecordRegistration(OutcomeDuplicate)
		return nil, InputError(MsgEmailExists, err)
	case errors.Is(err, storage.ErrDuplicate):
		a.metrics.RecordRegistration(OutcomeDuplicate)
		return nil, InputError(MsgUsernameExists, err)
	case err != nil:
		a.metrics.RecordRegistration(OutcomeError)
		return nil, a.storeFailure(logger, "Failed to create user", err)
	}

	token, expiresAt, err := a.tokens.Issue(IdentityOf(user), a.tokens.TTL())
	if err != nil {
		a.metrics.RecordRegistration(OutcomeError)
		return nil, a.storeFailure(logger, "Failed to issue token", err)
	}

	a.metrics.RecordRegistration(OutcomeSuccess)
	a.logAudit(ctx, &AuditEvent{Action: ActionRegister, Status: StatusSuccess, UserID: user.ID, Username: user.Username, IP: req.IP})

	return &RegisterResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   newUser.Profile,
	}, nil
}

// prepareUser validates and normalizes req into the row to insert
func (a *Authenticator) prepareUser(req *RegisterRequest) (*fitness.NewUser, error) {
	if msg := firstInvalid(validation.ValidateUsername(req.Username), validation.ValidatePassword(req.Password)); msg != "" {
		return nil, InputError(msg, nil)
	}

	role := req.Role
	if role == "" {
		role = fitness.RoleAthlete
	}

	var checks []error
	checks = append(checks, validation.ValidateRole(string(role)))
	if !req.Simple() {
		checks = append(checks,
			validation.RequireNonBlank("first_name", req.FirstName),
			validation.RequireNonBlank("last_name", req.LastName),
			validation.RequireNonBlank("email", deref(req.Email)),
			validation.RequireNonBlank("university", req.University),
		)
	}
	if req.Email != nil {
		checks = append(checks, validation.ValidateEmail(strings.TrimSpace(*req.Email)))
	}
	if req.Age != nil {
		checks = append(checks, validation.ValidateAge(*req.Age))
	}
	if req.Weight != nil {
		checks = append(checks, validation.ValidateWeight(*req.Weight))
	}
	if req.Profile != nil && req.Profile.FitnessLevel != "" {
		checks = append(checks, validation.ValidateFitnessLevel(string(req.Profile.FitnessLevel)))
	}
	if err := validation.First(checks...); err != nil {
		return nil, InputError(err.Error(), err)
	}

	u := &fitness.NewUser{
		Username:   strings.TrimSpace(req.Username),
		Role:       role,
		FirstName:  a.sanitizer.Text(req.FirstName),
		LastName:   a.sanitizer.Text(req.LastName),
		University: a.sanitizer.Text(req.University),
		Age:        req.Age,
		Weight:     req.Weight,
		Height:     a.sanitizer.TextPtr(req.Height),
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		u.Email = &email
	}
	if req.Simple() {
		u.FirstName = u.Username
	}
	if role == fitness.RoleAthlete {
		u.Profile = a.athleteProfile(req.Profile)
	}
	return u, nil
}

// athleteProfile overlays the supplied fields onto the default profile
func (a *Authenticator) athleteProfile(in *fitness.AthleteProfile) *fitness.AthleteProfile {
	p := fitness.DefaultAthleteProfile()
	if in == nil {
		return p
	}
	if s := a.sanitizer.Text(in.Sport); s != "" {
		p.Sport = s
	}
	if s := a.sanitizer.Text(in.Position); s != "" {
		p.Position = s
	}
	if s := a.sanitizer.Text(in.Team); s != "" {
		p.Team = s
	}
	if in.FitnessLevel != "" {
		p.FitnessLevel = in.FitnessLevel
	}
	return p
}

func (a *Authenticator) storeFailure(logger *observability.Logger, msg string, err error) error {
	logger.WithError(err).Error(msg)
	return StoreError(err)
}

func (a *Authenticator) logAudit(ctx context.Context, event *AuditEvent) {
	if err := a.audit.LogAction(ctx, event); err != nil {
		a.logger.WithError(err).Warn("Failed to write audit event")
	}
}

func firstInvalid(results ...validation.Result) string {
	for _, r := range results {
		if !r.Valid {
			return r.Error
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
