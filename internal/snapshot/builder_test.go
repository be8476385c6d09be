package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errUpstream = errors.New("upstream unavailable")

type fakeIssues struct {
	issues   gateway.Result[[]domain.RawIssue]
	events   gateway.Result[[]domain.RawEvent]
	panicked bool
	window   time.Duration
	limit    int
}

func (f *fakeIssues) FetchRecentIssues(_ context.Context, window time.Duration) gateway.Result[[]domain.RawIssue] {
	if f.panicked {
		panic("issues exploded")
	}
	f.window = window
	return f.issues
}

func (f *fakeIssues) FetchRecentEvents(_ context.Context, _ time.Duration, limit int) gateway.Result[[]domain.RawEvent] {
	if f.panicked {
		panic("events exploded")
	}
	f.limit = limit
	return f.events
}

type fakeHealth struct {
	status       gateway.Result[domain.HealthStatus]
	uptime       gateway.Result[[]domain.UptimeEntry]
	responseTime gateway.Result[[]domain.ResponseTimeEntry]
	panicked     bool
}

func (f *fakeHealth) FetchSystemStatus(context.Context) gateway.Result[domain.HealthStatus] {
	if f.panicked {
		panic("health exploded")
	}
	return f.status
}

func (f *fakeHealth) FetchUptimeHistory(context.Context, int) gateway.Result[[]domain.UptimeEntry] {
	if f.panicked {
		panic("uptime exploded")
	}
	return f.uptime
}

func (f *fakeHealth) FetchResponseTimeHistory(context.Context, int) gateway.Result[[]domain.ResponseTimeEntry] {
	if f.panicked {
		panic("response time exploded")
	}
	return f.responseTime
}

func liveIssues(issues ...domain.RawIssue) *fakeIssues {
	return &fakeIssues{
		issues: gateway.Live(issues),
		events: gateway.Live([]domain.RawEvent{}),
	}
}

func liveHealth() *fakeHealth {
	return &fakeHealth{
		status: gateway.Live(domain.HealthStatus{
			Overall:     domain.OverallStatus{Status: domain.ServiceStateOperational, LastChecked: fixedNow},
			Services:    map[string]domain.ProbeStatus{},
			LastUpdated: fixedNow,
		}),
		uptime:       gateway.Live([]domain.UptimeEntry{{Date: "2026-03-01", Uptime: 99.9}}),
		responseTime: gateway.Live([]domain.ResponseTimeEntry{{Timestamp: fixedNow, ResponseTime: 180}}),
	}
}

func newTestBuilder(issues IssueSource, health HealthSource, mutate func(*Config)) *Builder {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewBuilder(cfg, issues, health, WithClock(func() time.Time { return fixedNow }))
}

func TestBuild_ScenarioA(t *testing.T) {
	issues := liveIssues(domain.RawIssue{
		ID:     "1",
		Title:  "auth timeout",
		Status: domain.IssueStateUnresolved,
		Level:  domain.IssueLevelFatal,
		Tags:   []domain.Tag{{Key: "service", Value: "auth"}},
	})
	b := newTestBuilder(issues, liveHealth(), nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	require.Len(t, snap.Incidents, 1)
	assert.Equal(t, domain.SeverityCritical, snap.Incidents[0].Severity)
	assert.Equal(t, domain.ServiceStateDown, snap.Status.Services[domain.ServiceAuth].Status)
	assert.Equal(t, domain.ServiceStateDown, snap.Status.Overall.Status)
	assert.Equal(t, 1, snap.Status.TotalActiveIssues)
	assert.Equal(t, 7*24*time.Hour, issues.window)
	assert.Equal(t, 20, issues.limit)
	assert.Equal(t, domain.Sources{
		Issues:       domain.ProvenanceLive,
		Events:       domain.ProvenanceLive,
		Health:       domain.ProvenanceLive,
		Uptime:       domain.ProvenanceLive,
		ResponseTime: domain.ProvenanceLive,
	}, snap.Sources)
	require.NotNil(t, snap.History)
	assert.Len(t, snap.History.Uptime, 1)
	assert.True(t, snap.LastUpdated.Equal(fixedNow))
}

func TestBuild_ScenarioD_Empty(t *testing.T) {
	b := newTestBuilder(liveIssues(), liveHealth(), nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Equal(t, domain.ServiceStateOperational, snap.Status.Overall.Status)
	assert.Zero(t, snap.Status.TotalActiveIssues)
	assert.NotNil(t, snap.Incidents)
	assert.Empty(t, snap.Incidents)
	assert.NotNil(t, snap.DetailedErrors)
}

func TestBuild_GatewaysSubstituted(t *testing.T) {
	issues := &fakeIssues{
		issues: gateway.Substitute([]domain.RawIssue{{
			ID:     "mock-1",
			Title:  "Network timeout in user authentication",
			Status: domain.IssueStateUnresolved,
			Level:  domain.IssueLevelError,
		}}, domain.ProvenanceSynthetic, errUpstream),
		events: gateway.Substitute([]domain.RawEvent{{ID: "ev"}}, domain.ProvenanceSynthetic, errUpstream),
	}
	health := liveHealth()
	health.status = gateway.Substitute(health.status.Value, domain.ProvenanceProbe, errUpstream)
	health.uptime = gateway.Substitute(health.uptime.Value, domain.ProvenanceSynthetic, errUpstream)
	health.responseTime = gateway.Substitute(health.responseTime.Value, domain.ProvenanceSynthetic, errUpstream)
	b := newTestBuilder(issues, health, nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Equal(t, domain.ProvenanceSynthetic, snap.Sources.Issues)
	assert.Equal(t, domain.ProvenanceSynthetic, snap.Sources.Events)
	assert.Equal(t, domain.ProvenanceProbe, snap.Sources.Health)
	assert.Equal(t, domain.ProvenanceSynthetic, snap.Sources.Uptime)
	assert.Len(t, snap.Incidents, 1)
	require.Len(t, snap.DetailedErrors, 1)
	assert.Equal(t, "Unknown error", snap.DetailedErrors[0].Title)
}

func TestBuild_BothGatewaysPanic(t *testing.T) {
	b := newTestBuilder(&fakeIssues{panicked: true}, &fakeHealth{panicked: true}, nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Equal(t, domain.ServiceStateOperational, snap.Status.Overall.Status)
	assert.Len(t, snap.Status.Services, len(domain.KnownServices))
	assert.Empty(t, snap.Incidents)
	assert.Empty(t, snap.DetailedErrors)
	require.NotNil(t, snap.Health)
	assert.Equal(t, domain.ServiceStateOperational, snap.Health.Overall.Status)
	require.NotNil(t, snap.History)
	assert.NotNil(t, snap.History.Uptime)
	assert.NotNil(t, snap.History.ResponseTime)
	assert.Equal(t, domain.Sources{
		Issues:       domain.ProvenanceFallback,
		Events:       domain.ProvenanceFallback,
		Health:       domain.ProvenanceFallback,
		Uptime:       domain.ProvenanceFallback,
		ResponseTime: domain.ProvenanceFallback,
	}, snap.Sources)
}

func TestBuild_OneBranchFailureDoesNotAffectOthers(t *testing.T) {
	issues := liveIssues(domain.RawIssue{
		ID:     "1",
		Title:  "upload failed",
		Status: domain.IssueStateUnresolved,
		Level:  domain.IssueLevelError,
	})
	b := newTestBuilder(issues, &fakeHealth{panicked: true}, nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Equal(t, domain.ProvenanceLive, snap.Sources.Issues)
	assert.Equal(t, domain.ProvenanceFallback, snap.Sources.Health)
	assert.Equal(t, domain.ServiceStateDegraded, snap.Status.Services[domain.ServiceStorage].Status)
}

func TestBuild_AssemblyPanicServesFallback(t *testing.T) {
	b := newTestBuilder(liveIssues(), liveHealth(), nil)
	b.aggregator = nil

	snap, ok := b.Build(context.Background())

	assert.False(t, ok)
	assert.Equal(t, domain.FallbackSnapshot(fixedNow), snap)
}

func TestBuild_IncidentCap(t *testing.T) {
	raw := make([]domain.RawIssue, 0, 25)
	for i := range 25 {
		raw = append(raw, domain.RawIssue{
			ID:     fmt.Sprintf("issue-%d", i),
			Title:  "api failure",
			Status: domain.IssueStateUnresolved,
			Level:  domain.IssueLevelWarning,
		})
	}
	b := newTestBuilder(liveIssues(raw...), liveHealth(), nil)

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Len(t, snap.Incidents, 20)
	assert.Equal(t, "issue-0", snap.Incidents[0].ID)
	assert.Equal(t, 25, snap.Status.TotalActiveIssues)
	assert.Equal(t, 25, snap.Status.Services[domain.ServiceAPI].IssueCount)
}

func TestBuild_OptionalSectionsDisabled(t *testing.T) {
	b := newTestBuilder(liveIssues(), liveHealth(), func(cfg *Config) {
		cfg.IncludeErrors = false
		cfg.IncludeHealth = false
		cfg.IncludeHistory = false
	})

	snap, ok := b.Build(context.Background())

	require.True(t, ok)
	assert.Nil(t, snap.Health)
	assert.Nil(t, snap.History)
	assert.Empty(t, snap.DetailedErrors)
	assert.Equal(t, domain.ProvenanceLive, snap.Sources.Issues)
	assert.Equal(t, domain.ProvenanceFallback, snap.Sources.Events)
	assert.Equal(t, domain.ProvenanceFallback, snap.Sources.Health)
}

func TestIncidents_ReportsProvenance(t *testing.T) {
	raw := domain.RawIssue{ID: "1", Title: "login broken", Status: domain.IssueStateUnresolved}

	incidents, real := newTestBuilder(liveIssues(raw), liveHealth(), nil).Incidents(context.Background())
	assert.True(t, real)
	assert.Len(t, incidents, 1)

	mocked := &fakeIssues{issues: gateway.Substitute([]domain.RawIssue{raw}, domain.ProvenanceSynthetic, errUpstream)}
	incidents, real = newTestBuilder(mocked, liveHealth(), nil).Incidents(context.Background())
	assert.False(t, real)
	assert.Len(t, incidents, 1)
}
