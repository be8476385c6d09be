// Package snapshot assembles the public status payload from both gateways.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gearconnect/statuspage/internal/aggregator"
	"github.com/gearconnect/statuspage/internal/classifier"
	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway"
	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
	"github.com/gearconnect/statuspage/internal/pkg/metrics"
)

// IssueSource is the error-tracking gateway as seen by the builder.
type IssueSource interface {
	FetchRecentIssues(ctx context.Context, window time.Duration) gateway.Result[[]domain.RawIssue]
	FetchRecentEvents(ctx context.Context, window time.Duration, limit int) gateway.Result[[]domain.RawEvent]
}

// HealthSource is the mobile health gateway as seen by the builder.
type HealthSource interface {
	FetchSystemStatus(ctx context.Context) gateway.Result[domain.HealthStatus]
	FetchUptimeHistory(ctx context.Context, days int) gateway.Result[[]domain.UptimeEntry]
	FetchResponseTimeHistory(ctx context.Context, hours int) gateway.Result[[]domain.ResponseTimeEntry]
}

// Config controls what goes into a snapshot.
type Config struct {
	IssueWindow       time.Duration `koanf:"issue_window"`
	EventWindow       time.Duration `koanf:"event_window"`
	EventLimit        int           `koanf:"event_limit"`
	IncidentLimit     int           `koanf:"incident_limit"`
	UptimeDays        int           `koanf:"uptime_days"`
	ResponseTimeHours int           `koanf:"response_time_hours"`
	BreadcrumbLimit   int           `koanf:"breadcrumb_limit"`
	IncludeErrors     bool          `koanf:"include_errors"`
	IncludeHealth     bool          `koanf:"include_health"`
	IncludeHistory    bool          `koanf:"include_history"`
}

// DefaultConfig returns the snapshot defaults.
func DefaultConfig() Config {
	return Config{
		IssueWindow:       7 * 24 * time.Hour,
		EventWindow:       24 * time.Hour,
		EventLimit:        20,
		IncidentLimit:     20,
		UptimeDays:        30,
		ResponseTimeHours: 24,
		BreadcrumbLimit:   classifier.DefaultBreadcrumbLimit,
		IncludeErrors:     true,
		IncludeHealth:     true,
		IncludeHistory:    true,
	}
}

// Builder assembles snapshots. It holds no per-request state and is safe
// for concurrent use.
type Builder struct {
	cfg        Config
	issues     IssueSource
	health     HealthSource
	aggregator *aggregator.Aggregator
	tracer     trace.Tracer
	now        func() time.Time
}

// Option customises a Builder.
type Option func(*Builder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithAggregator overrides the aggregator, e.g. to track other services.
func WithAggregator(a *aggregator.Aggregator) Option {
	return func(b *Builder) { b.aggregator = a }
}

// NewBuilder creates a snapshot builder.
func NewBuilder(cfg Config, issues IssueSource, health HealthSource, opts ...Option) *Builder {
	b := &Builder{
		cfg:        cfg,
		issues:     issues,
		health:     health,
		aggregator: aggregator.New(),
		tracer:     otel.Tracer("github.com/gearconnect/statuspage/internal/snapshot"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles one snapshot. It always returns a usable payload; ok is
// false when assembly failed outright and the all-operational fallback was
// returned instead.
func (b *Builder) Build(ctx context.Context) (snap domain.Snapshot, ok bool) {
	start := time.Now()
	ctx, span := b.tracer.Start(ctx, "snapshot.build")
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("snapshot assembly failed, serving fallback", "panic", r)
			snap, ok = domain.FallbackSnapshot(b.now().UTC()), false
		}
		result := "ok"
		if !ok {
			result = "fallback"
		}
		span.SetAttributes(attribute.String("snapshot.result", result))
		span.End()
		metrics.SnapshotBuilds.WithLabelValues(result).Inc()
		metrics.SnapshotBuildDuration.Observe(time.Since(start).Seconds())
	}()

	return b.assemble(ctx), true
}

// fetched holds every branch's outcome after the join.
type fetched struct {
	issues       gateway.Result[[]domain.RawIssue]
	events       gateway.Result[[]domain.RawEvent]
	health       gateway.Result[domain.HealthStatus]
	uptime       gateway.Result[[]domain.UptimeEntry]
	responseTime gateway.Result[[]domain.ResponseTimeEntry]
}

func (b *Builder) assemble(ctx context.Context) domain.Snapshot {
	f := b.fetch(ctx)
	now := b.now().UTC()
	logger := ctxlog.FromContext(ctx)

	incidents := classifier.ClassifyAll(f.issues.Value)
	status := b.aggregator.Aggregate(incidents, now)

	limit := b.cfg.IncidentLimit
	if limit > 0 && len(incidents) > limit {
		incidents = incidents[:limit]
	}

	snap := domain.Snapshot{
		Status:         status,
		Incidents:      incidents,
		DetailedErrors: []domain.DetailedError{},
		Sources: domain.Sources{
			Issues:       f.issues.Source,
			Events:       f.events.Source,
			Health:       f.health.Source,
			Uptime:       f.uptime.Source,
			ResponseTime: f.responseTime.Source,
		},
		LastUpdated: now,
	}

	if b.cfg.IncludeErrors {
		snap.DetailedErrors = classifier.DescribeEvents(f.events.Value, b.cfg.BreadcrumbLimit)
	}
	if b.cfg.IncludeHealth {
		health := f.health.Value
		snap.Health = &health
	}
	if b.cfg.IncludeHistory {
		snap.History = &domain.History{
			Uptime:       nonNil(f.uptime.Value),
			ResponseTime: nonNil(f.responseTime.Value),
		}
	}

	logger.Debug("snapshot assembled",
		"incidents", len(snap.Incidents),
		"active_issues", status.TotalActiveIssues,
		"overall", status.Overall.Status,
	)
	return snap
}

// fetch runs every enabled gateway call concurrently and waits for all of
// them. A failing branch is replaced by its default and never affects the
// others.
func (b *Builder) fetch(ctx context.Context) fetched {
	now := b.now().UTC()
	f := fetched{
		issues:       fallback([]domain.RawIssue{}),
		events:       fallback([]domain.RawEvent{}),
		health:       fallback(defaultHealth(now)),
		uptime:       fallback([]domain.UptimeEntry{}),
		responseTime: fallback([]domain.ResponseTimeEntry{}),
	}

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ctxlog.FromContext(ctx).Error("snapshot branch panicked", "branch", name, "panic", r)
				}
			}()
			fn()
		}()
	}

	// Each branch writes only its own field.
	run("issues", func() {
		f.issues = settle(ctx, "tracker", "fetch_issues", []domain.RawIssue{}, func() gateway.Result[[]domain.RawIssue] {
			return b.issues.FetchRecentIssues(ctx, b.cfg.IssueWindow)
		})
	})
	if b.cfg.IncludeErrors {
		run("events", func() {
			f.events = settle(ctx, "tracker", "fetch_events", []domain.RawEvent{}, func() gateway.Result[[]domain.RawEvent] {
				return b.issues.FetchRecentEvents(ctx, b.cfg.EventWindow, b.cfg.EventLimit)
			})
		})
	}
	if b.cfg.IncludeHealth {
		run("health", func() {
			f.health = settle(ctx, "mobile", "fetch_status", defaultHealth(now), func() gateway.Result[domain.HealthStatus] {
				return b.health.FetchSystemStatus(ctx)
			})
		})
	}
	if b.cfg.IncludeHistory {
		run("uptime", func() {
			f.uptime = settle(ctx, "mobile", "fetch_uptime", []domain.UptimeEntry{}, func() gateway.Result[[]domain.UptimeEntry] {
				return b.health.FetchUptimeHistory(ctx, b.cfg.UptimeDays)
			})
		})
		run("response_time", func() {
			f.responseTime = settle(ctx, "mobile", "fetch_response_time", []domain.ResponseTimeEntry{}, func() gateway.Result[[]domain.ResponseTimeEntry] {
				return b.health.FetchResponseTimeHistory(ctx, b.cfg.ResponseTimeHours)
			})
		})
	}
	wg.Wait()

	return f
}

// settle runs call and turns a panic into the fallback value. A substituted
// result is logged and counted here, once, for every gateway.
func settle[T any](ctx context.Context, gatewayName, operation string, fallback T, call func() gateway.Result[T]) (res gateway.Result[T]) {
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			res = gateway.Substitute(fallback, domain.ProvenanceFallback, fmt.Errorf("%s panicked: %v", operation, r))
		}
		if res.Failed() {
			metrics.GatewayFallbacks.WithLabelValues(gatewayName, operation, string(res.Source)).Inc()
			logger.Warn("gateway result substituted",
				"gateway", gatewayName,
				"operation", operation,
				"source", res.Source,
				"error", res.Err,
			)
		}
	}()
	return call()
}

// fallback wraps a branch default. Disabled branches keep it as is.
func fallback[T any](value T) gateway.Result[T] {
	return gateway.Result[T]{Value: value, Source: domain.ProvenanceFallback}
}

// defaultHealth is the minimal health view used when the health branch fails.
func defaultHealth(now time.Time) domain.HealthStatus {
	services := make(map[string]domain.ProbeStatus, len(domain.KnownServices))
	for _, key := range domain.KnownServices {
		services[key] = domain.ProbeStatus{Status: domain.ServiceStateOperational, LastChecked: now}
	}
	return domain.HealthStatus{
		Overall:     domain.OverallStatus{Status: domain.ServiceStateOperational, LastChecked: now},
		Services:    services,
		LastUpdated: now,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Incidents classifies the current issue feed. real is false when the feed
// was substituted, so callers acting on incidents can skip mock data.
func (b *Builder) Incidents(ctx context.Context) (incidents []domain.Incident, real bool) {
	res := settle(ctx, "tracker", "fetch_issues", []domain.RawIssue{}, func() gateway.Result[[]domain.RawIssue] {
		return b.issues.FetchRecentIssues(ctx, b.cfg.IssueWindow)
	})
	return classifier.ClassifyAll(res.Value), res.Source.IsReal()
}
