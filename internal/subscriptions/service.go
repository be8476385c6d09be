package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
	"github.com/gearconnect/statuspage/internal/pkg/metrics"
)

// Confirmer sends the welcome message to a new subscriber.
type Confirmer interface {
	SendConfirmation(ctx context.Context, sub domain.Subscription) error
}

// Service implements subscription business logic.
type Service struct {
	repo      Repository
	confirmer Confirmer
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates a subscription service. confirmer may be nil.
func NewService(repo Repository, confirmer Confirmer) *Service {
	return &Service{
		repo:      repo,
		confirmer: confirmer,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// NormalizeEmail lowercases and trims an address and checks its shape.
func (s *Service) NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(normalized, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	at := strings.LastIndex(normalized, "@")
	if !strings.Contains(normalized[at+1:], ".") {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// Subscribe registers email for every notification type. created is false
// when the address was already subscribed; the existing record is returned.
func (s *Service) Subscribe(ctx context.Context, email string) (sub *domain.Subscription, created bool, err error) {
	normalized, err := s.NormalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByEmail(ctx, normalized)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("get subscription: %w", err)
	}

	sub = &domain.Subscription{
		ID:        uuid.New().String(),
		Email:     normalized,
		CreatedAt: s.now().UTC(),
		Verified:  true,
		Types:     append([]domain.NotificationType(nil), domain.DefaultNotificationTypes...),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			// lost a race with a concurrent subscribe
			existing, getErr := s.repo.GetByEmail(ctx, normalized)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create subscription: %w", err)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("new subscription", "subscription_id", sub.ID)
	s.refreshGauge(ctx)

	if s.confirmer != nil {
		if err := s.confirmer.SendConfirmation(ctx, *sub); err != nil {
			logger.Warn("failed to send subscription confirmation",
				"subscription_id", sub.ID,
				"error", err,
			)
		}
	}

	return sub, true, nil
}

// Unsubscribe removes email. It returns ErrNotFound for unknown addresses.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	normalized, err := s.NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByEmail(ctx, normalized); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("subscription removed")
	s.refreshGauge(ctx)
	return nil
}

// List returns every subscription.
func (s *Service) List(ctx context.Context) ([]domain.Subscription, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// RefreshMetrics sets the subscriptions gauge from the store.
func (s *Service) RefreshMetrics(ctx context.Context) {
	s.refreshGauge(ctx)
}

func (s *Service) refreshGauge(ctx context.Context) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("failed to count subscriptions", "error", err)
		return
	}
	metrics.SubscriptionsTotal.Set(float64(len(subs)))
}

// MaskEmail hides all but the first two characters of the local part,
// e.g. "alice@example.com" becomes "al***@example.com". Addresses with a
// shorter local part are returned unchanged.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local := []rune(email[:at])
	if len(local) < 2 {
		return email
	}
	return string(local[:2]) + "***" + email[at:]
}
