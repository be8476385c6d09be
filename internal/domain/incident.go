package domain

import "time"

// IncidentStatus represents the lifecycle status of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is one of the known statuses.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IsOpen reports whether the incident still affects live service status.
func (s IncidentStatus) IsOpen() bool {
	return s != IncidentStatusResolved
}

// Severity represents the severity level of an incident.
type Severity string

// Severity levels.
const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return s == SeverityMinor || s == SeverityMajor || s == SeverityCritical
}

// Incident is the status-page view of one error-tracker issue.
// ResolvedAt is set if and only if Status is resolved.
type Incident struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Status           IncidentStatus   `json:"status"`
	Severity         Severity         `json:"severity"`
	AffectedServices []string         `json:"affectedServices"`
	CreatedAt        time.Time        `json:"createdAt"`
	ResolvedAt       *time.Time       `json:"resolvedAt,omitempty"`
	Updates          []IncidentUpdate `json:"updates"`

	Count     int    `json:"count"`
	UserCount int    `json:"userCount"`
	Permalink string `json:"permalink,omitempty"`
	ShortID   string `json:"shortId,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// IncidentUpdate is a synthesized timeline entry of an incident.
type IncidentUpdate struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Status    IncidentStatus `json:"status"`
	Message   string         `json:"message"`
}
