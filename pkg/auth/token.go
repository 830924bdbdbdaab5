package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/laot-fitness/laot/pkg/fitness"
)

const (
	// MinSecretLength is the shortest accepted HMAC secret in bytes
	MinSecretLength = 32
	// DefaultTokenTTL is the lifetime of tokens minted at login and registration
	DefaultTokenTTL = 24 * time.Hour
	// RandomTokenLength is the number of random bytes in session ids and CSRF tokens
	RandomTokenLength = 32
)

var (
	// ErrInvalidToken is returned for malformed, tampered or wrongly signed tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their exp
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload
type Claims struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Role     fitness.Role `json:"user_role"`
	jwt.RegisteredClaims
}

// Identity returns the caller identity carried by the claims
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Role: c.Role}
}

// TokenCodec issues and verifies HS256 tokens
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec. A zero ttl uses DefaultTokenTTL.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	return &TokenCodec{secret: key, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// TTL returns the configured token lifetime
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for id that expires ttl after now. A negative ttl
// yields a token that is already expired.
func (c *TokenCodec) Issue(id Identity, ttl time.Duration) (string, time.Time, error) {
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature, algorithm and expiry of token and returns its claims
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.UserID <= 0 || claims.Username == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return claims, nil
}

// GenerateRandomToken returns RandomTokenLength random bytes encoded as
// unpadded base64url
func GenerateRandomToken() (string, error) {
	randomBytes := make([]byte, RandomTokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}
