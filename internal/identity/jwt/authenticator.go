// Package jwt issues and validates HS256 admin access tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gearconnect/statuspage/internal/domain"
)

const issuer = "statuspage"

// ErrInvalidToken is returned for tokens that fail signature, expiry or role checks.
var ErrInvalidToken = errors.New("invalid token")

// Config contains token settings.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// Claims are the access token claims.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator signs and parses access tokens.
type Authenticator struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.SecretKey),
		duration: cfg.AccessTokenDuration,
		now:      time.Now,
	}
}

// Issue returns a signed token for subject with role, and its expiry.
func (a *Authenticator) Issue(subject string, role domain.Role) (string, time.Time, error) {
	now := a.now()
	expiresAt := jwt.NewNumericDate(now.Add(a.duration))
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Parse validates token and returns its subject and role.
func (a *Authenticator) Parse(token string) (string, domain.Role, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !claims.Role.IsValid() {
		return "", "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims.Subject, claims.Role, nil
}
