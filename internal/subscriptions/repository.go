// Package subscriptions manages email subscriptions to status notifications.
package subscriptions

import (
	"context"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Repository stores subscriptions. Emails are unique and already normalized.
type Repository interface {
	// Create stores sub. It returns ErrAlreadySubscribed when the email exists.
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByEmail(ctx context.Context, email string) (*domain.Subscription, error)
	// DeleteByEmail returns ErrNotFound when no subscription matches.
	DeleteByEmail(ctx context.Context, email string) error
	// List returns subscriptions oldest first.
	List(ctx context.Context) ([]domain.Subscription, error)
}
