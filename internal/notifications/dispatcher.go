package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Dispatcher renders a payload and hands it to every configured channel.
type Dispatcher struct {
	recipients RecipientSource
	renderer   *Renderer
	email      EmailSender
	webhook    WebhookSender
	statusURL  string
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher creates a dispatcher. email and webhook may be nil.
func NewDispatcher(recipients RecipientSource, renderer *Renderer, email EmailSender, webhook WebhookSender, statusURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		recipients: recipients,
		renderer:   renderer,
		email:      email,
		webhook:    webhook,
		statusURL:  statusURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Dispatch sends a kind message about incident. Channel failures are logged
// and joined into the returned error; one failing channel does not stop the other.
func (d *Dispatcher) Dispatch(ctx context.Context, kind MessageKind, incident domain.Incident) error {
	payload := Payload{
		Kind:      kind,
		Incident:  incident,
		StatusURL: d.statusURL,
		SentAt:    d.now().UTC(),
	}

	var errs []error
	if d.email != nil {
		if err := d.dispatchEmail(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if d.webhook != nil {
		if err := d.dispatchWebhook(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, payload Payload) error {
	recipients, err := d.recipients.Recipients(ctx, payload.Kind.NotificationType())
	if err != nil {
		return fmt.Errorf("find recipients: %w", err)
	}
	if len(recipients) == 0 {
		d.logger.Debug("no subscribers for notification", "kind", payload.Kind, "incident_id", payload.Incident.ID)
		return nil
	}

	subject, body, err := d.renderer.Render(ChannelEmail, payload)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	start := time.Now()
	err = d.email.SendBatch(ctx, subject, body, recipients)
	recordDuration(ChannelEmail, time.Since(start))
	recordSent(ChannelEmail, payload.Kind, err)
	if err != nil {
		d.logger.Error("failed to send email notification",
			"kind", payload.Kind,
			"incident_id", payload.Incident.ID,
			"recipient_count", len(recipients),
			"error", err,
		)
		return fmt.Errorf("send email: %w", err)
	}

	d.logger.Info("email notification sent",
		"kind", payload.Kind,
		"incident_id", payload.Incident.ID,
		"recipient_count", len(recipients),
	)
	return nil
}

func (d *Dispatcher) dispatchWebhook(ctx context.Context, payload Payload) error {
	subject, body, err := d.renderer.Render(ChannelMattermost, payload)
	if err != nil {
		return fmt.Errorf("render mattermost: %w", err)
	}

	start := time.Now()
	err = d.webhook.Post(ctx, subject, body)
	recordDuration(ChannelMattermost, time.Since(start))
	recordSent(ChannelMattermost, payload.Kind, err)
	if err != nil {
		d.logger.Error("failed to post mattermost notification",
			"kind", payload.Kind,
			"incident_id", payload.Incident.ID,
			"error", err,
		)
		return fmt.Errorf("post mattermost: %w", err)
	}
	return nil
}

// SendConfirmation emails a new subscriber. It implements subscriptions.Confirmer.
func (d *Dispatcher) SendConfirmation(ctx context.Context, sub domain.Subscription) error {
	if d.email == nil {
		return nil
	}

	subject, body, err := d.renderer.Render(ChannelEmail, Payload{
		Kind:      MessageConfirmation,
		Email:     sub.Email,
		StatusURL: d.statusURL,
		SentAt:    d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	err = d.email.Send(ctx, sub.Email, subject, body)
	recordSent(ChannelEmail, MessageConfirmation, err)
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}
