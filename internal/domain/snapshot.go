package domain

import "time"

// Provenance tells where a part of the snapshot came from.
type Provenance string

// Provenance values.
const (
	ProvenanceLive      Provenance = "live"
	ProvenanceProbe     Provenance = "probe"
	ProvenanceSynthetic Provenance = "synthetic"
	ProvenanceFallback  Provenance = "fallback"
)

// IsReal reports whether the data reflects an actual upstream observation.
func (p Provenance) IsReal() bool {
	return p == ProvenanceLive || p == ProvenanceProbe
}

// Breadcrumb is one entry of an event's breadcrumb trail.
type Breadcrumb struct {
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     string         `json:"level,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// DetailedError is a raw event enriched for debugging display.
// It carries no status-affecting semantics.
type DetailedError struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Level       IssueLevel     `json:"level"`
	Timestamp   *time.Time     `json:"timestamp"`
	User        map[string]any `json:"user"`
	Device      map[string]any `json:"device"`
	OS          map[string]any `json:"os"`
	App         map[string]any `json:"app"`
	StackTrace  map[string]any `json:"stackTrace"`
	Breadcrumbs []Breadcrumb   `json:"breadcrumbs"`
	Tags        []Tag          `json:"tags"`
}

// ProbeStatus is the state of one service as seen by the mobile health feed.
type ProbeStatus struct {
	Status       ServiceState `json:"status"`
	LastChecked  time.Time    `json:"lastChecked"`
	ResponseTime *int64       `json:"responseTime,omitempty"`
}

// HealthStatus is the mobile health feed's view of the backend.
type HealthStatus struct {
	Overall     OverallStatus          `json:"overall"`
	Services    map[string]ProbeStatus `json:"services"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// UptimeEntry is the uptime percentage of one day.
type UptimeEntry struct {
	Date   string  `json:"date"`
	Uptime float64 `json:"uptime"`
}

// ResponseTimeEntry is the average response time of one hour, in milliseconds.
type ResponseTimeEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime int64     `json:"responseTime"`
}

// History groups the time series shown on charts.
type History struct {
	Uptime       []UptimeEntry       `json:"uptime"`
	ResponseTime []ResponseTimeEntry `json:"responseTime"`
}

// Sources records the provenance of every snapshot section.
type Sources struct {
	Issues       Provenance `json:"issues"`
	Events       Provenance `json:"events"`
	Health       Provenance `json:"health"`
	Uptime       Provenance `json:"uptime"`
	ResponseTime Provenance `json:"responseTime"`
}

// Snapshot is the payload served to status-page clients.
// It is built fresh for every request and never stored.
type Snapshot struct {
	Status         SystemStatus    `json:"status"`
	Health         *HealthStatus   `json:"health,omitempty"`
	Incidents      []Incident      `json:"incidents"`
	DetailedErrors []DetailedError `json:"detailedErrors"`
	History        *History        `json:"history,omitempty"`
	Sources        Sources         `json:"sources"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// FallbackSnapshot returns the all-operational payload served when snapshot
// assembly fails outright.
func FallbackSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Status:         OperationalSystemStatus(now),
		Incidents:      []Incident{},
		DetailedErrors: []DetailedError{},
		Sources: Sources{
			Issues:       ProvenanceFallback,
			Events:       ProvenanceFallback,
			Health:       ProvenanceFallback,
			Uptime:       ProvenanceFallback,
			ResponseTime: ProvenanceFallback,
		},
		LastUpdated: now,
	}
}
