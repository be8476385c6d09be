package tracker

import (
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// mockIssues returns the sample issue served when the tracker is unavailable.
func mockIssues(now time.Time) []domain.RawIssue {
	firstSeen := now.Add(-2 * time.Hour)
	lastSeen := now.Add(-10 * time.Minute)
	return []domain.RawIssue{
		{
			ID:        "mock-1",
			Title:     "Network timeout in user authentication",
			Culprit:   "auth/login",
			Status:    domain.IssueStateUnresolved,
			Level:     domain.IssueLevelError,
			FirstSeen: &firstSeen,
			LastSeen:  &lastSeen,
			Count:     15,
			UserCount: 8,
			Tags: []domain.Tag{
				{Key: domain.TagKeyService, Value: domain.ServiceAuth},
				{Key: domain.TagKeyComponent, Value: "login"},
			},
		},
	}
}

// mockEvents returns the sample event served when the tracker is unavailable.
func mockEvents(now time.Time) []domain.RawEvent {
	created := now.Add(-10 * time.Minute)
	crumb := now.Add(-11 * time.Minute)
	return []domain.RawEvent{
		{
			ID:          "mock-event-1",
			Title:       "Network timeout in user authentication",
			Message:     "Request to /auth/login timed out after 30s",
			Level:       domain.IssueLevelError,
			DateCreated: &created,
			User:        map[string]any{"id": "user-123"},
			Device:      map[string]any{"model": "iPhone 14", "family": "iOS"},
			OS:          map[string]any{"name": "iOS", "version": "17.0"},
			App:         map[string]any{"app_version": "1.0.0"},
			Breadcrumbs: []domain.Breadcrumb{
				{
					Type:      "navigation",
					Category:  "navigation",
					Message:   "Navigated to LoginScreen",
					Level:     "info",
					Timestamp: &crumb,
				},
			},
			Tags: []domain.Tag{
				{Key: domain.TagKeyService, Value: domain.ServiceAuth},
			},
		},
	}
}
