package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey string
	Expiration time.Duration
}

// OrganizationClaims represents the JWT claims of an authenticated organization admin.
// The admin email is carried in the registered "sub" claim.
type OrganizationClaims struct {
	OrganizationID   string `json:"org_id,omitempty"`
	OrganizationName string `json:"org_name"`
	jwt.RegisteredClaims
}

// Identity is the identity asserted by a verified token
type Identity struct {
	Email            string
	OrganizationID   string
	OrganizationName string
	IssuedAt         time.Time
	ExpiresAt        time.Time
}

// Option configures a JWTUtil
type Option func(*JWTUtil)

// WithClock overrides the time source used for issuing and verifying tokens
func WithClock(now func() time.Time) Option {
	return func(j *JWTUtil) {
		j.now = now
	}
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config JWTConfig
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config JWTConfig, opts ...Option) (*JWTUtil, error) {
	if config.SigningKey == "" {
		return nil, errors.New("JWT signing key not provided")
	}
	if config.Expiration <= 0 {
		return nil, errors.New("JWT expiration must be positive")
	}

	j := &JWTUtil{
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	// No leeway: a token is valid strictly before its expiry.
	j.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	return j, nil
}

// Expiration returns the default token lifetime
func (j *JWTUtil) Expiration() time.Duration {
	return j.config.Expiration
}

// Issue creates a signed token for the identity valid for ttl.
// A non-positive ttl uses the configured expiration.
func (j *JWTUtil) Issue(identity Identity, ttl time.Duration) (string, error) {
	if identity.Email == "" || identity.OrganizationName == "" {
		return "", errors.New("token identity requires email and organization name")
	}
	if ttl <= 0 {
		ttl = j.config.Expiration
	}

	now := j.now()
	claims := OrganizationClaims{
		OrganizationID:   identity.OrganizationID,
		OrganizationName: identity.OrganizationName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.config.SigningKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's structure, signature and expiry.
// It returns false for any failure; the cause is not reported.
func (j *JWTUtil) Verify(tokenString string) (Identity, bool) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return Identity{}, false
	}

	identity := Identity{
		Email:            claims.Subject,
		OrganizationID:   claims.OrganizationID,
		OrganizationName: claims.OrganizationName,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, true
}

func (j *JWTUtil) parse(tokenString string) (*OrganizationClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	token, err := j.parser.ParseWithClaims(
		tokenString,
		&OrganizationClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*OrganizationClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.OrganizationName == "" {
		return nil, errors.New("token is missing identity claims")
	}
	return claims, nil
}
