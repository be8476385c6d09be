package classifier

import (
	"testing"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) *time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return &v
}

func TestClassify_AuthFatal(t *testing.T) {
	incident := Classify(domain.RawIssue{
		ID:     "1",
		Title:  "auth timeout",
		Level:  domain.IssueLevelFatal,
		Status: domain.IssueStateUnresolved,
		Tags:   []domain.Tag{{Key: "service", Value: "auth"}},
	})

	assert.Equal(t, domain.SeverityCritical, incident.Severity)
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)
	assert.Equal(t, []string{"auth"}, incident.AffectedServices)
	assert.Nil(t, incident.ResolvedAt)
}

func TestClassify_ResolvedWarning(t *testing.T) {
	incident := Classify(domain.RawIssue{
		ID:        "2",
		Title:     "generic issue",
		Level:     domain.IssueLevelWarning,
		Status:    domain.IssueStateResolved,
		FirstSeen: ts(t, "2026-01-01T10:00:00Z"),
		LastSeen:  ts(t, "2026-01-01T12:00:00Z"),
	})

	assert.Equal(t, domain.SeverityMinor, incident.Severity)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	require.NotNil(t, incident.ResolvedAt)
	assert.Equal(t, *ts(t, "2026-01-01T12:00:00Z"), *incident.ResolvedAt)
	assert.Equal(t, []string{domain.DefaultService}, incident.AffectedServices)
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		state    domain.IssueState
		expected domain.IncidentStatus
	}{
		{domain.IssueStateUnresolved, domain.IncidentStatusInvestigating},
		{domain.IssueStateIgnored, domain.IncidentStatusIdentified},
		{domain.IssueStateResolved, domain.IncidentStatusResolved},
		{domain.IssueStateResolving, domain.IncidentStatusMonitoring},
		{"RESOLVED", domain.IncidentStatusResolved},
		{"muted", domain.IncidentStatusInvestigating},
		{"", domain.IncidentStatusInvestigating},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.expected, MapStatus(tt.state))
		})
	}
}

func TestMapSeverity(t *testing.T) {
	critical := domain.SeverityCritical

	tests := []struct {
		name     string
		level    domain.IssueLevel
		tags     TagSet
		expected domain.Severity
	}{
		{"fatal", domain.IssueLevelFatal, TagSet{}, domain.SeverityCritical},
		{"error", domain.IssueLevelError, TagSet{}, domain.SeverityMajor},
		{"warning", domain.IssueLevelWarning, TagSet{}, domain.SeverityMinor},
		{"info", domain.IssueLevelInfo, TagSet{}, domain.SeverityMinor},
		{"missing level", "", TagSet{}, domain.SeverityMinor},
		{"severity tag wins", domain.IssueLevelInfo, TagSet{Severity: &critical}, domain.SeverityCritical},
		{"incident type outage", domain.IssueLevelWarning, TagSet{IncidentType: "outage"}, domain.SeverityCritical},
		{"incident type degradation", domain.IssueLevelInfo, TagSet{IncidentType: "Degradation"}, domain.SeverityMajor},
		{"incident type cosmetic", domain.IssueLevelFatal, TagSet{IncidentType: "cosmetic"}, domain.SeverityMinor},
		{"unknown incident type falls through", domain.IssueLevelError, TagSet{IncidentType: "other"}, domain.SeverityMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSeverity(tt.level, tt.tags))
		})
	}
}

func TestInferServices(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		culprit  string
		tags     TagSet
		expected []string
	}{
		{"login keyword", "Login failed", "", TagSet{}, []string{"auth"}},
		{"network keyword", "Network request failed", "", TagSet{}, []string{"api"}},
		{"culprit is scanned", "TypeError", "uploadAvatar", TagSet{}, []string{"storage"}},
		{"case insensitive", "NAVIGATION crash", "", TagSet{}, []string{"mobile"}},
		{"several families", "fetch during upload", "", TagSet{}, []string{"api", "storage"}},
		{"tag adds literal value", "boom", "", TagSet{Services: []string{"payments"}}, []string{"payments"}},
		{"tag deduplicated", "auth error", "", TagSet{Services: []string{"auth", "auth"}}, []string{"auth"}},
		{"nothing matched", "boom", "", TagSet{}, []string{"mobile"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferServices(tt.title, tt.culprit, tt.tags))
		})
	}
}

func TestClassify_TitleFallbacks(t *testing.T) {
	assert.Equal(t, "Foo.bar", Classify(domain.RawIssue{Culprit: "Foo.bar"}).Title)
	assert.Equal(t, UnknownIncidentTitle, Classify(domain.RawIssue{}).Title)
	assert.Equal(t, "Crash", Classify(domain.RawIssue{Title: " Crash ", Culprit: "x"}).Title)
}

func TestClassify_Updates(t *testing.T) {
	first := ts(t, "2026-01-01T10:00:00Z")
	last := ts(t, "2026-01-01T11:00:00Z")

	t.Run("first and last", func(t *testing.T) {
		incident := Classify(domain.RawIssue{
			ID:        "42",
			Status:    domain.IssueStateResolving,
			FirstSeen: first,
			LastSeen:  last,
			Count:     15,
			UserCount: 5,
		})

		require.Len(t, incident.Updates, 2)
		assert.Equal(t, "42-first", incident.Updates[0].ID)
		assert.Equal(t, domain.IncidentStatusInvestigating, incident.Updates[0].Status)
		assert.Equal(t, "First occurrence detected (15 times total)", incident.Updates[0].Message)
		assert.Equal(t, "42-last", incident.Updates[1].ID)
		assert.Equal(t, domain.IncidentStatusMonitoring, incident.Updates[1].Status)
		assert.Equal(t, "Last occurrence affecting 5 users", incident.Updates[1].Message)
		assert.True(t, incident.Updates[0].Timestamp.Before(incident.Updates[1].Timestamp))
	})

	t.Run("single occurrence", func(t *testing.T) {
		incident := Classify(domain.RawIssue{ID: "7", FirstSeen: first, LastSeen: first, Count: 1, UserCount: 1})

		require.Len(t, incident.Updates, 1)
		assert.Equal(t, "First occurrence detected", incident.Updates[0].Message)
		assert.Equal(t, *first, incident.CreatedAt)
	})

	t.Run("no timestamps", func(t *testing.T) {
		incident := Classify(domain.RawIssue{ID: "8"})
		assert.Empty(t, incident.Updates)
		assert.True(t, incident.CreatedAt.IsZero())
	})
}

func TestClassify_Totality(t *testing.T) {
	states := []domain.IssueState{"unresolved", "resolved", "ignored", "resolving", "", "weird"}
	levels := []domain.IssueLevel{"fatal", "error", "warning", "info", "", "debug"}
	first := ts(t, "2026-01-01T10:00:00Z")

	for _, state := range states {
		for _, level := range levels {
			incident := Classify(domain.RawIssue{ID: "x", Status: state, Level: level, FirstSeen: first})

			assert.True(t, incident.Status.IsValid(), "state %q", state)
			assert.True(t, incident.Severity.IsValid(), "level %q", level)
			assert.NotEmpty(t, incident.AffectedServices)
			assert.Equal(t, incident.Status == domain.IncidentStatusResolved, incident.ResolvedAt != nil,
				"resolvedAt must be set iff resolved (state %q)", state)
		}
	}
}

func TestClassifyAll_PreservesOrder(t *testing.T) {
	incidents := ClassifyAll([]domain.RawIssue{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	require.Len(t, incidents, 3)
	assert.Equal(t, "a", incidents[0].ID)
	assert.Equal(t, "c", incidents[2].ID)
	assert.NotNil(t, ClassifyAll(nil))
}

func TestParseTags(t *testing.T) {
	set := ParseTags([]domain.Tag{
		{Key: "service", Value: "auth"},
		{Key: "component", Value: " login "},
		{Key: "incident_severity", Value: "CRITICAL"},
		{Key: "incident_type", Value: "outage"},
		{Key: "environment", Value: "production"},
		{Key: "service", Value: ""},
	})

	assert.Equal(t, []string{"auth", "login"}, set.Services)
	require.NotNil(t, set.Severity)
	assert.Equal(t, domain.SeverityCritical, *set.Severity)
	assert.Equal(t, "outage", set.IncidentType)
	assert.Equal(t, []domain.Tag{{Key: "environment", Value: "production"}}, set.Unrecognized)
}

func TestParseTags_InvalidSeverityIgnored(t *testing.T) {
	set := ParseTags([]domain.Tag{{Key: "incident_severity", Value: "apocalyptic"}})
	assert.Nil(t, set.Severity)
}
