// Package tracker fetches issues and events from the error-tracking service.
// Every call returns usable data: when the tracker is not configured, fails,
// or sits behind an open breaker, sample data is returned with the cause.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway"
)

const gatewayName = "tracker"

// Config configures the error-tracker client.
type Config struct {
	BaseURL    string                `koanf:"base_url"`
	Org        string                `koanf:"org"`
	Project    string                `koanf:"project"`
	AuthToken  string                `koanf:"auth_token"`
	Timeout    time.Duration         `koanf:"timeout"`
	Debug      bool                  `koanf:"debug"`
	IssueLimit int                   `koanf:"issue_limit"`
	IssueQuery string                `koanf:"issue_query"`
	Breaker    gateway.BreakerConfig `koanf:"breaker"`
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://sentry.io/api/0",
		Org:        "coding-factory-classrooms",
		Project:    "react-native",
		Timeout:    5 * time.Second,
		IssueLimit: 50,
		Breaker:    gateway.DefaultBreakerConfig(),
	}
}

// Client talks to the error tracker's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the time source used for sample data.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a tracker client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/gearconnect/statuspage/internal/gateway/tracker"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("gateway", gatewayName)
	c.breaker = gateway.NewBreaker(gatewayName, cfg.Breaker, c.logger)
	return c
}

// Configured reports whether credentials for the tracker are present.
func (c *Client) Configured() bool {
	return c.cfg.AuthToken != ""
}

// FetchRecentIssues returns issues seen within window, most recent first.
func (c *Client) FetchRecentIssues(ctx context.Context, window time.Duration) gateway.Result[[]domain.RawIssue] {
	if !c.Configured() {
		return gateway.Substitute(mockIssues(c.now()), domain.ProvenanceSynthetic, gateway.ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("statsPeriod", StatsPeriod(window))
	q.Set("limit", fmt.Sprint(c.issueLimit()))
	q.Set("sort", "date")
	if c.cfg.IssueQuery != "" {
		q.Set("query", c.cfg.IssueQuery)
	}

	var payload []wireIssue
	if err := c.get(ctx, "fetch_issues", "issues", q, &payload); err != nil {
		return gateway.Substitute(mockIssues(c.now()), domain.ProvenanceSynthetic, err)
	}

	issues := make([]domain.RawIssue, 0, len(payload))
	for _, w := range payload {
		issues = append(issues, w.toDomain())
	}
	return gateway.Live(issues)
}

// FetchRecentEvents returns up to limit events from within window.
func (c *Client) FetchRecentEvents(ctx context.Context, window time.Duration, limit int) gateway.Result[[]domain.RawEvent] {
	if !c.Configured() {
		return gateway.Substitute(mockEvents(c.now()), domain.ProvenanceSynthetic, gateway.ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("query", "")
	q.Set("statsPeriod", StatsPeriod(window))
	q.Set("limit", fmt.Sprint(limit))

	var payload []wireEvent
	if err := c.get(ctx, "fetch_events", "events", q, &payload); err != nil {
		return gateway.Substitute(mockEvents(c.now()), domain.ProvenanceSynthetic, err)
	}

	events := make([]domain.RawEvent, 0, len(payload))
	for _, w := range payload {
		events = append(events, w.toDomain())
	}
	return gateway.Live(events)
}

func (c *Client) get(ctx context.Context, operation, resource string, q url.Values, out any) (err error) {
	endpoint := fmt.Sprintf("%s/projects/%s/%s/%s/?%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Org), url.PathEscape(c.cfg.Project), resource, q.Encode())

	ctx, span := c.tracer.Start(ctx, "tracker."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tracker.org", c.cfg.Org),
			attribute.String("tracker.project", c.cfg.Project),
		),
	)
	start := time.Now()
	defer func() {
		gateway.Observe(gatewayName, operation, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.cfg.Debug {
		c.logger.Debug("tracker request", "operation", operation, "url", endpoint)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.AuthToken}
	err = gateway.Guard(c.breaker, func() error {
		return gateway.GetJSON(ctx, c.httpClient, endpoint, headers, out)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (c *Client) issueLimit() int {
	if c.cfg.IssueLimit > 0 {
		return c.cfg.IssueLimit
	}
	return 50
}

// StatsPeriod formats a lookback window the way the tracker expects:
// whole days as "Nd", anything else as hours rounded up.
func StatsPeriod(window time.Duration) string {
	if window <= 0 {
		return "24h"
	}
	const day = 24 * time.Hour
	if window%day == 0 {
		return fmt.Sprintf("%dd", window/day)
	}
	return fmt.Sprintf("%dh", int64(math.Ceil(window.Hours())))
}
