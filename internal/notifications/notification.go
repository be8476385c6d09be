// Package notifications tells subscribers when incidents open and resolve.
package notifications

import (
	"context"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// MessageKind selects the template family of a notification.
type MessageKind string

// Message kinds.
const (
	MessageIncident     MessageKind = "incident"
	MessageResolution   MessageKind = "resolution"
	MessageConfirmation MessageKind = "confirmation"
)

// NotificationType returns the subscription type a message is delivered to.
func (k MessageKind) NotificationType() domain.NotificationType {
	if k == MessageResolution {
		return domain.NotificationTypeResolution
	}
	return domain.NotificationTypeIncident
}

// Channel is a delivery channel with its own templates.
type Channel string

// Channels.
const (
	ChannelEmail      Channel = "email"
	ChannelMattermost Channel = "mattermost"
)

// Payload is the data handed to templates.
type Payload struct {
	Kind      MessageKind
	Incident  domain.Incident
	Email     string
	StatusURL string
	SentAt    time.Time
}

// EmailSender delivers plain-text email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
	// SendBatch delivers one message to many recipients without disclosing
	// them to each other.
	SendBatch(ctx context.Context, subject, body string, recipients []string) error
}

// WebhookSender posts a message to an operator chat.
type WebhookSender interface {
	Post(ctx context.Context, subject, body string) error
}

// RecipientSource lists subscriber emails that opted into a notification type.
type RecipientSource interface {
	Recipients(ctx context.Context, t domain.NotificationType) ([]string, error)
}

// IncidentSource returns the current incident feed. real is false when the
// feed was produced from mock or fallback data.
type IncidentSource interface {
	Incidents(ctx context.Context) (incidents []domain.Incident, real bool)
}
