// Package identity authenticates the status page administrator.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
)

// Authenticator issues and validates access tokens.
type Authenticator interface {
	Issue(subject string, role domain.Role) (string, time.Time, error)
	Parse(token string) (string, domain.Role, error)
}

// AdminConfig holds the single administrator account.
type AdminConfig struct {
	Username string
	// PasswordHash is a bcrypt hash. Login is disabled when it is empty.
	PasswordHash string
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service implements admin login and token validation.
type Service struct {
	admin AdminConfig
	auth  Authenticator
}

// NewService creates a new identity service.
func NewService(admin AdminConfig, auth Authenticator) *Service {
	return &Service{admin: admin, auth: auth}
}

// Login checks credentials and issues an admin token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	if s.admin.PasswordHash == "" {
		return nil, ErrLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, fmt.Errorf("compare password hash: %w", err)
	}
	if !userOK || err != nil {
		ctxlog.FromContext(ctx).Warn("failed admin login", "username", username)
		return nil, ErrInvalidCredentials
	}

	access, expiresAt, err := s.auth.Issue(s.admin.Username, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	ctxlog.FromContext(ctx).Info("admin logged in", "username", username)
	return &Token{AccessToken: access, ExpiresAt: expiresAt}, nil
}

// ValidateToken implements httputil.TokenValidator.
func (s *Service) ValidateToken(_ context.Context, token string) (string, domain.Role, error) {
	return s.auth.Parse(token)
}
