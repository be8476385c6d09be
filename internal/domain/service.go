package domain

import "time"

// ServiceState represents the operational state of a service.
type ServiceState string

// Service states, ordered from best to worst.
const (
	ServiceStateOperational ServiceState = "operational"
	ServiceStateDegraded    ServiceState = "degraded"
	ServiceStateDown        ServiceState = "down"
)

// rank orders states for worst-of aggregation.
func (s ServiceState) rank() int {
	switch s {
	case ServiceStateDown:
		return 2
	case ServiceStateDegraded:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two states (down > degraded > operational).
func (s ServiceState) Worse(other ServiceState) ServiceState {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// WorstOf folds states with the down > degraded > operational ordering.
// An empty input is operational.
func WorstOf(states ...ServiceState) ServiceState {
	worst := ServiceStateOperational
	for _, s := range states {
		worst = worst.Worse(s)
	}
	return worst
}

// Canonical service keys tracked by the status page.
const (
	ServiceMobile  = "mobile"
	ServiceAPI     = "api"
	ServiceAuth    = "auth"
	ServiceStorage = "storage"
)

// DefaultService receives incidents no service could be inferred for.
const DefaultService = ServiceMobile

// KnownServices lists the service keys in display order.
var KnownServices = []string{ServiceMobile, ServiceAPI, ServiceAuth, ServiceStorage}

var serviceDisplayNames = map[string]string{
	ServiceMobile:  "Mobile App",
	ServiceAPI:     "API",
	ServiceAuth:    "Authentication",
	ServiceStorage: "Storage",
}

// ServiceDisplayName returns the human-readable name of a service key.
// Unknown keys are returned unchanged.
func ServiceDisplayName(key string) string {
	if name, ok := serviceDisplayNames[key]; ok {
		return name
	}
	return key
}

// ServiceStatus is the derived state of one tracked service.
// Status is operational iff IssueCount is 0.
type ServiceStatus struct {
	Name        string       `json:"name"`
	Status      ServiceState `json:"status"`
	LastChecked time.Time    `json:"lastChecked"`
	IssueCount  int          `json:"issueCount"`
	LastIssue   *time.Time   `json:"lastIssue"`
}

// OverallStatus summarises the whole system.
type OverallStatus struct {
	Status      ServiceState `json:"status"`
	LastChecked time.Time    `json:"lastChecked"`
}

// SystemStatus is the incident-derived status of all tracked services.
type SystemStatus struct {
	Overall           OverallStatus            `json:"overall"`
	Services          map[string]ServiceStatus `json:"services"`
	LastUpdated       time.Time                `json:"lastUpdated"`
	TotalActiveIssues int                      `json:"totalActiveIssues"`
}

// OperationalSystemStatus returns the all-operational status used as a default.
func OperationalSystemStatus(now time.Time) SystemStatus {
	services := make(map[string]ServiceStatus, len(KnownServices))
	for _, key := range KnownServices {
		services[key] = ServiceStatus{
			Name:        ServiceDisplayName(key),
			Status:      ServiceStateOperational,
			LastChecked: now,
		}
	}
	return SystemStatus{
		Overall:     OverallStatus{Status: ServiceStateOperational, LastChecked: now},
		Services:    services,
		LastUpdated: now,
	}
}
