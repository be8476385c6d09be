// Package postgres provides PostgreSQL implementation of the subscriptions repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/subscriptions"
)

// Repository implements subscriptions.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a subscription.
func (r *Repository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, email, created_at, verified, types)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, sub.ID, sub.Email, sub.CreatedAt, sub.Verified, typesToStrings(sub.Types))
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscriptions.ErrAlreadySubscribed
	}
	return nil
}

// GetByEmail retrieves a subscription by normalized email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.Subscription, error) {
	query := `
		SELECT id::text, email, created_at, verified, types
		FROM subscriptions
		WHERE email = $1
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// DeleteByEmail deletes a subscription by normalized email.
func (r *Repository) DeleteByEmail(ctx context.Context, email string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscriptions.ErrNotFound
	}
	return nil
}

// List returns all subscriptions, oldest first.
func (r *Repository) List(ctx context.Context) ([]domain.Subscription, error) {
	query := `
		SELECT id::text, email, created_at, verified, types
		FROM subscriptions
		ORDER BY created_at, email
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub   domain.Subscription
		types []string
	)
	if err := row.Scan(&sub.ID, &sub.Email, &sub.CreatedAt, &sub.Verified, &types); err != nil {
		return nil, err
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.Types = make([]domain.NotificationType, 0, len(types))
	for _, t := range types {
		sub.Types = append(sub.Types, domain.NotificationType(t))
	}
	return &sub, nil
}

func typesToStrings(types []domain.NotificationType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
