package subscriptions

import (
	"context"
	"fmt"

	"github.com/gearconnect/statuspage/internal/domain"
)

// RecipientIndex answers who should receive a notification type.
type RecipientIndex struct {
	repo Repository
}

// NewRecipientIndex creates a recipient index over repo.
func NewRecipientIndex(repo Repository) *RecipientIndex {
	return &RecipientIndex{repo: repo}
}

// Recipients returns the emails of verified subscribers that opted into t.
func (i *RecipientIndex) Recipients(ctx context.Context, t domain.NotificationType) ([]string, error) {
	subs, err := i.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	emails := make([]string, 0, len(subs))
	for k := range subs {
		if subs[k].Verified && subs[k].Wants(t) {
			emails = append(emails, subs[k].Email)
		}
	}
	return emails, nil
}
