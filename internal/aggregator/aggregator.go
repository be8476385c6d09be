// Package aggregator folds classified incidents into per-service and overall status.
package aggregator

import (
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Aggregator computes SystemStatus for a fixed set of services.
type Aggregator struct {
	services []string
}

// New creates an aggregator tracking the given service keys.
// With no keys it tracks domain.KnownServices.
func New(services ...string) *Aggregator {
	if len(services) == 0 {
		services = domain.KnownServices
	}
	return &Aggregator{services: services}
}

// Services returns the tracked service keys.
func (a *Aggregator) Services() []string {
	return a.services
}

// Aggregate derives the system status from incidents observed at now.
// Only open incidents count. Incidents affecting no tracked service still
// count toward TotalActiveIssues.
func (a *Aggregator) Aggregate(incidents []domain.Incident, now time.Time) domain.SystemStatus {
	services := make(map[string]domain.ServiceStatus, len(a.services))
	for _, key := range a.services {
		services[key] = domain.ServiceStatus{
			Name:        domain.ServiceDisplayName(key),
			Status:      domain.ServiceStateOperational,
			LastChecked: now,
		}
	}

	active := 0
	for _, incident := range incidents {
		if !incident.Status.IsOpen() {
			continue
		}
		active++

		for _, key := range incident.AffectedServices {
			svc, ok := services[key]
			if !ok {
				continue
			}

			svc.IssueCount++
			createdAt := incident.CreatedAt
			svc.LastIssue = &createdAt
			svc.Status = escalate(svc.Status, incident.Severity)

			services[key] = svc
		}
	}

	states := make([]domain.ServiceState, 0, len(services))
	for _, svc := range services {
		states = append(states, svc.Status)
	}

	return domain.SystemStatus{
		Overall: domain.OverallStatus{
			Status:      domain.WorstOf(states...),
			LastChecked: now,
		},
		Services:          services,
		LastUpdated:       now,
		TotalActiveIssues: active,
	}
}

// escalate applies one open incident to a service state: critical forces
// down, anything else lifts operational to degraded and never lowers down.
func escalate(current domain.ServiceState, severity domain.Severity) domain.ServiceState {
	if severity == domain.SeverityCritical {
		return domain.ServiceStateDown
	}
	return current.Worse(domain.ServiceStateDegraded)
}
