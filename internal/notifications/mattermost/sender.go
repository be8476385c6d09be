// Package mattermost posts operator notifications to a Mattermost incoming webhook.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "GearConnect Status"
	maxErrorBody    = 512
)

// ErrNoWebhook is returned by Post when no webhook URL is configured.
var ErrNoWebhook = errors.New("mattermost webhook URL is empty")

// Config holds Mattermost sender configuration.
type Config struct {
	WebhookURL string
	Username   string
	IconURL    string
	Timeout    time.Duration
}

// Sender posts messages to one incoming webhook.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Mattermost sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

// Post sends subject as a heading followed by body.
func (s *Sender) Post(ctx context.Context, subject, body string) error {
	if s.config.WebhookURL == "" {
		return ErrNoWebhook
	}

	text := body
	if subject != "" {
		text = fmt.Sprintf("### %s\n\n%s", subject, body)
	}

	raw, err := json.Marshal(webhookPayload{
		Text:     text,
		Username: s.config.Username,
		IconURL:  s.config.IconURL,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &WebhookError{Message: fmt.Sprintf("send request: %v", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return classify(resp.StatusCode, string(snippet))
}

func classify(status int, body string) *WebhookError {
	switch {
	case status == http.StatusBadRequest:
		return &WebhookError{Code: status, Message: "bad request: " + body}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &WebhookError{Code: status, Message: "invalid or expired webhook"}
	case status == http.StatusNotFound:
		return &WebhookError{Code: status, Message: "webhook not found"}
	case status == http.StatusTooManyRequests:
		return &WebhookError{Code: status, Message: "rate limited", Retryable: true}
	case status >= 500:
		return &WebhookError{Code: status, Message: "server error: " + body, Retryable: true}
	default:
		return &WebhookError{Code: status, Message: "unexpected status: " + body}
	}
}

// WebhookError describes a failed webhook call.
type WebhookError struct {
	Code      int
	Message   string
	Retryable bool
}

func (e *WebhookError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("mattermost error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("mattermost error: %s", e.Message)
}
