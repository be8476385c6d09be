// Package classifier turns raw error-tracker records into status-page incidents.
package classifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Placeholder titles for records without any usable text.
const (
	UnknownIncidentTitle = "Unknown incident"
	UnknownErrorTitle    = "Unknown error"
)

// keywordFamily maps text fragments to the service they point at.
type keywordFamily struct {
	service  string
	keywords []string
}

// Families are checked in this order, which is also the order of the result.
var keywordFamilies = []keywordFamily{
	{service: domain.ServiceAuth, keywords: []string{"auth", "login"}},
	{service: domain.ServiceAPI, keywords: []string{"api", "network", "fetch"}},
	{service: domain.ServiceStorage, keywords: []string{"storage", "upload", "file"}},
	{service: domain.ServiceMobile, keywords: []string{"mobile", "app", "navigation"}},
}

// Classify maps one raw issue to exactly one incident. It never fails:
// missing optional fields degrade to placeholders and defaults.
func Classify(issue domain.RawIssue) domain.Incident {
	tags := ParseTags(issue.Tags)
	status := MapStatus(issue.Status)

	var createdAt time.Time
	switch {
	case issue.FirstSeen != nil:
		createdAt = *issue.FirstSeen
	case issue.LastSeen != nil:
		createdAt = *issue.LastSeen
	}

	incident := domain.Incident{
		ID:               issue.ID,
		Title:            issueTitle(issue),
		Status:           status,
		Severity:         MapSeverity(issue.Level, tags),
		AffectedServices: InferServices(issue.Title, issue.Culprit, tags),
		CreatedAt:        createdAt,
		Updates:          synthesizeUpdates(issue, status),
		Count:            max(issue.Count, 0),
		UserCount:        max(issue.UserCount, 0),
		Permalink:        issue.Permalink,
		ShortID:          issue.ShortID,
		Platform:         issue.Platform,
	}

	if status == domain.IncidentStatusResolved {
		resolvedAt := createdAt
		if issue.LastSeen != nil {
			resolvedAt = *issue.LastSeen
		}
		incident.ResolvedAt = &resolvedAt
	}

	return incident
}

// ClassifyAll classifies issues preserving their order. No cap is applied.
func ClassifyAll(issues []domain.RawIssue) []domain.Incident {
	incidents := make([]domain.Incident, 0, len(issues))
	for _, issue := range issues {
		incidents = append(incidents, Classify(issue))
	}
	return incidents
}

// MapStatus maps an error-tracker state to an incident status.
// Unknown states are treated as investigating.
func MapStatus(state domain.IssueState) domain.IncidentStatus {
	switch domain.IssueState(strings.ToLower(string(state))) {
	case domain.IssueStateIgnored:
		return domain.IncidentStatusIdentified
	case domain.IssueStateResolved:
		return domain.IncidentStatusResolved
	case domain.IssueStateResolving:
		return domain.IncidentStatusMonitoring
	default:
		return domain.IncidentStatusInvestigating
	}
}

// MapSeverity derives the incident severity. Explicit severity tags win over
// the level-derived mapping (fatal → critical, error → major, else minor).
func MapSeverity(level domain.IssueLevel, tags TagSet) domain.Severity {
	if tags.Severity != nil {
		return *tags.Severity
	}
	if sev, ok := severityFromIncidentType(tags.IncidentType); ok {
		return sev
	}

	switch domain.IssueLevel(strings.ToLower(string(level))) {
	case domain.IssueLevelFatal:
		return domain.SeverityCritical
	case domain.IssueLevelError:
		return domain.SeverityMajor
	default:
		return domain.SeverityMinor
	}
}

func severityFromIncidentType(incidentType string) (domain.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(incidentType)) {
	case "outage", "down":
		return domain.SeverityCritical, true
	case "degradation", "degraded", "performance":
		return domain.SeverityMajor, true
	case "cosmetic", "minor":
		return domain.SeverityMinor, true
	}
	return "", false
}

// InferServices returns the deduplicated, order-preserving list of services
// an issue points at. It is never empty.
func InferServices(title, culprit string, tags TagSet) []string {
	text := strings.ToLower(title + " " + culprit)

	services := make([]string, 0, len(keywordFamilies)+len(tags.Services))
	seen := make(map[string]bool)
	add := func(service string) {
		if service == "" || seen[service] {
			return
		}
		seen[service] = true
		services = append(services, service)
	}

	for _, family := range keywordFamilies {
		for _, kw := range family.keywords {
			if strings.Contains(text, kw) {
				add(family.service)
				break
			}
		}
	}

	for _, service := range tags.Services {
		add(service)
	}

	if len(services) == 0 {
		services = append(services, domain.DefaultService)
	}

	return services
}

func issueTitle(issue domain.RawIssue) string {
	if title := strings.TrimSpace(issue.Title); title != "" {
		return title
	}
	if culprit := strings.TrimSpace(issue.Culprit); culprit != "" {
		return culprit
	}
	return UnknownIncidentTitle
}

// synthesizeUpdates builds the incident timeline from first/last-seen
// timestamps. Entries are chronological.
func synthesizeUpdates(issue domain.RawIssue, status domain.IncidentStatus) []domain.IncidentUpdate {
	updates := make([]domain.IncidentUpdate, 0, 2)

	if issue.FirstSeen != nil {
		msg := "First occurrence detected"
		if issue.Count > 1 {
			msg = fmt.Sprintf("%s (%d times total)", msg, issue.Count)
		}
		updates = append(updates, domain.IncidentUpdate{
			ID:        issue.ID + "-first",
			Timestamp: *issue.FirstSeen,
			Status:    domain.IncidentStatusInvestigating,
			Message:   msg,
		})
	}

	if issue.LastSeen != nil && (issue.FirstSeen == nil || !issue.LastSeen.Equal(*issue.FirstSeen)) {
		msg := "Last occurrence"
		if issue.UserCount > 1 {
			msg = fmt.Sprintf("%s affecting %d users", msg, issue.UserCount)
		}
		updates = append(updates, domain.IncidentUpdate{
			ID:        issue.ID + "-last",
			Timestamp: *issue.LastSeen,
			Status:    status,
			Message:   msg,
		})
	}

	return updates
}
