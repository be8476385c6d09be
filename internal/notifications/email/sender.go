// Package email delivers notifications over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const dialTimeout = 10 * time.Second

var errNoRecipients = errors.New("relay accepted no recipients")

// Config configures the SMTP relay.
type Config struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	// FromAddress may carry a display name, e.g. "Status <status@example.com>".
	FromAddress string
	// BatchSize caps the envelope recipients of one SMTP transaction.
	BatchSize int
	// RateLimit is the number of SMTP transactions per second. Zero or
	// negative disables pacing.
	RateLimit float64
}

// Sender sends plain-text mail through one SMTP relay. Subscribers are
// always addressed through the envelope so they never see each other.
type Sender struct {
	config   Config
	envelope string
	auth     smtp.Auth
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

// NewSender validates config and applies defaults. A disabled sender accepts
// every call and sends nothing.
func NewSender(config Config, logger *slog.Logger) (*Sender, error) {
	if config.Enabled {
		if config.SMTPHost == "" {
			return nil, errors.New("email sender: SMTP host is required when enabled")
		}
		if config.FromAddress == "" {
			return nil, errors.New("email sender: from address is required when enabled")
		}
	}

	var envelope string
	if config.FromAddress != "" {
		from, err := mail.ParseAddress(config.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("email sender: invalid from address: %w", err)
		}
		envelope = from.Address
	}

	if config.SMTPPort == 0 {
		config.SMTPPort = 587
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	var auth smtp.Auth
	if config.SMTPUser != "" && config.SMTPPassword != "" {
		auth = smtp.PlainAuth("", config.SMTPUser, config.SMTPPassword, config.SMTPHost)
	}

	if config.Enabled {
		logger.Info("email sender configured",
			"smtp_host", config.SMTPHost,
			"smtp_port", config.SMTPPort,
			"batch_size", config.BatchSize,
			"rate_limit", config.RateLimit,
		)
	}

	return &Sender{
		config:   config,
		envelope: envelope,
		auth:     auth,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Send delivers a message to a single recipient.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	return s.SendBatch(ctx, subject, body, []string{to})
}

// SendBatch delivers one message to every recipient, split into transactions
// of at most BatchSize envelope recipients. A failed batch does not stop the
// rest; all batch errors are joined.
func (s *Sender) SendBatch(ctx context.Context, subject, body string, recipients []string) error {
	if !s.config.Enabled {
		s.logger.Debug("email sender disabled, skipping send", "recipient_count", len(recipients))
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := s.buildMessage(subject, body)
	batches := splitBatches(recipients, s.config.BatchSize)

	var errs []error
	for i, batch := range batches {
		if err := s.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for send slot: %w", err))
			break
		}
		if err := s.deliver(ctx, batch, msg); err != nil {
			s.logger.Error("email batch failed", "batch", i, "batch_size", len(batch), "error", err)
			errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		s.logger.Warn("email delivery incomplete", "failed_batches", len(errs), "batches", len(batches))
	}
	return errors.Join(errs...)
}

func splitBatches(recipients []string, size int) [][]string {
	batches := make([][]string, 0, (len(recipients)+size-1)/size)
	for i := 0; i < len(recipients); i += size {
		batches = append(batches, recipients[i:min(i+size, len(recipients))])
	}
	return batches
}

func (s *Sender) buildMessage(subject, body string) []byte {
	headers := [][2]string{
		{"From", s.config.FromAddress},
		{"To", "undisclosed-recipients:;"},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}

// deliver runs one SMTP transaction.
func (s *Sender) deliver(ctx context.Context, recipients []string, msg []byte) error {
	client, closeConn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	if err := client.Mail(s.envelope); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}

	accepted := 0
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			s.logger.Warn("recipient rejected", "error", err)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return errNoRecipients
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}

// dial connects to the relay, upgrades to TLS when offered and
// authenticates. The returned func closes the connection.
func (s *Sender) dial(ctx context.Context) (*smtp.Client, func(), error) {
	addr := net.JoinHostPort(s.config.SMTPHost, strconv.Itoa(s.config.SMTPPort))

	conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp handshake: %w", err)
	}
	closeConn := func() { _ = client.Close() }

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.config.SMTPHost, MinVersion: tls.VersionTLS12}); err != nil {
			closeConn()
			return nil, nil, fmt.Errorf("starttls: %w", err)
		}
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			closeConn()
			return nil, nil, fmt.Errorf("auth: %w", err)
		}
	}
	return client, closeConn, nil
}
