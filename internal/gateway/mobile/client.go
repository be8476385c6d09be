// Package mobile reads the mobile backend's health feed. When the status
// endpoint is unavailable it probes the backend directly, and when the
// history endpoints fail it generates synthetic series so charts never empty.
package mobile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

const gatewayName = "mobile"

const (
	opStatus       = "fetch_status"
	opUptime       = "fetch_uptime"
	opResponseTime = "fetch_response_time"
)

var errEmptyHistory = errors.New("upstream returned empty history")

// Config configures the mobile health client.
type Config struct {
	StatusURL      string                `koanf:"status_url"`
	APIURL         string                `koanf:"api_url"`
	StoragePingURL string                `koanf:"storage_ping_url"`
	Timeout        time.Duration         `koanf:"timeout"`
	ProbeTimeout   time.Duration         `koanf:"probe_timeout"`
	Seed           uint64                `koanf:"seed"`
	Breaker        gateway.BreakerConfig `koanf:"breaker"`
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		StatusURL:      "http://localhost:8081/status",
		APIURL:         "http://localhost:5000/api",
		StoragePingURL: "https://api.cloudinary.com/v1_1/demo/ping",
		Timeout:        5 * time.Second,
		ProbeTimeout:   5 * time.Second,
		Breaker:        gateway.DefaultBreakerConfig(),
	}
}

// Client talks to the mobile backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breakers   map[string]*gobreaker.CircuitBreaker
	gen        *generator
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a mobile health client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		gen:        newGenerator(cfg.Seed),
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/gearconnect/statuspage/internal/gateway/mobile"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("gateway", gatewayName)
	// Each endpoint trips independently.
	c.breakers = make(map[string]*gobreaker.CircuitBreaker, 3)
	for _, op := range []string{opStatus, opUptime, opResponseTime} {
		c.breakers[op] = gateway.NewBreaker(gatewayName+"."+op, cfg.Breaker, c.logger)
	}
	return c
}

// FetchSystemStatus returns the backend's health as reported by the status
// endpoint, or by direct probes when the endpoint fails.
func (c *Client) FetchSystemStatus(ctx context.Context) gateway.Result[domain.HealthStatus] {
	var payload wireStatus
	err := c.get(ctx, opStatus, c.cfg.StatusURL+"/api/status", &payload)
	if err == nil {
		return gateway.Live(payload.toDomain(c.now().UTC()))
	}

	health, probeErr := c.probeAll(ctx)
	if probeErr != nil {
		return gateway.Substitute(mockHealth(c.now().UTC()), domain.ProvenanceSynthetic, errors.Join(err, probeErr))
	}
	return gateway.Substitute(health, domain.ProvenanceProbe, err)
}

// FetchUptimeHistory returns daily uptime for the last days days.
func (c *Client) FetchUptimeHistory(ctx context.Context, days int) gateway.Result[[]domain.UptimeEntry] {
	var payload wireUptimeHistory
	endpoint := fmt.Sprintf("%s/api/uptime-history?days=%d", c.cfg.StatusURL, days)
	err := c.get(ctx, opUptime, endpoint, &payload)
	if err == nil && len(payload.History) == 0 {
		err = errEmptyHistory
	}
	if err != nil {
		return gateway.Substitute(c.gen.uptime(days, c.now()), domain.ProvenanceSynthetic, err)
	}

	out := make([]domain.UptimeEntry, 0, len(payload.History))
	for _, e := range payload.History {
		out = append(out, domain.UptimeEntry{Date: e.Date, Uptime: e.Uptime})
	}
	return gateway.Live(out)
}

// FetchResponseTimeHistory returns hourly response times for the last hours hours.
func (c *Client) FetchResponseTimeHistory(ctx context.Context, hours int) gateway.Result[[]domain.ResponseTimeEntry] {
	var payload wireResponseTimeHistory
	endpoint := fmt.Sprintf("%s/api/response-time-history?hours=%d", c.cfg.StatusURL, hours)
	err := c.get(ctx, opResponseTime, endpoint, &payload)
	if err == nil && len(payload.History) == 0 {
		err = errEmptyHistory
	}
	if err != nil {
		return gateway.Substitute(c.gen.responseTime(hours, c.now()), domain.ProvenanceSynthetic, err)
	}

	out := make([]domain.ResponseTimeEntry, 0, len(payload.History))
	for _, e := range payload.History {
		out = append(out, domain.ResponseTimeEntry{
			Timestamp:    e.Timestamp.Time,
			ResponseTime: int64(e.ResponseTime),
		})
	}
	return gateway.Live(out)
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out any) (err error) {
	if c.cfg.StatusURL == "" {
		return gateway.ErrNotConfigured
	}
	if _, err := url.Parse(endpoint); err != nil {
		return fmt.Errorf("%s: parse url: %w", operation, err)
	}

	ctx, span := c.tracer.Start(ctx, "mobile."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", endpoint)),
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

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	err = gateway.Guard(c.breakers[operation], func() error {
		return gateway.GetJSON(ctx, c.httpClient, endpoint, nil, out)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}
