package mobile

import (
	"strings"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway"
)

type wireStatus struct {
	Status      string                 `json:"status"`
	LastUpdated gateway.FlexTime       `json:"lastUpdated"`
	Services    map[string]wireService `json:"services"`
}

type wireService struct {
	Status       string           `json:"status"`
	ResponseTime *int64           `json:"responseTime"`
	LastChecked  gateway.FlexTime `json:"lastChecked"`
}

type wireUptimeHistory struct {
	History []struct {
		Date   string  `json:"date"`
		Uptime float64 `json:"uptime"`
	} `json:"history"`
}

type wireResponseTimeHistory struct {
	History []struct {
		Timestamp    gateway.FlexTime `json:"timestamp"`
		ResponseTime float64          `json:"responseTime"`
	} `json:"history"`
}

// mapState translates the mobile feed's vocabulary. Unknown values are
// treated as operational.
func mapState(status string) domain.ServiceState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "degraded":
		return domain.ServiceStateDegraded
	case "down":
		return domain.ServiceStateDown
	default:
		return domain.ServiceStateOperational
	}
}

// toDomain converts the payload. Services without lastChecked inherit the
// payload's lastUpdated, which itself defaults to now.
func (w wireStatus) toDomain(now time.Time) domain.HealthStatus {
	updated := w.LastUpdated
	if !updated.Valid {
		updated = gateway.FlexTime{Time: now, Valid: true}
	}

	services := make(map[string]domain.ProbeStatus, len(w.Services))
	for name, svc := range w.Services {
		checked := svc.LastChecked
		if !checked.Valid {
			checked = updated
		}
		services[name] = domain.ProbeStatus{
			Status:       mapState(svc.Status),
			LastChecked:  checked.Time,
			ResponseTime: svc.ResponseTime,
		}
	}

	return domain.HealthStatus{
		Overall:     domain.OverallStatus{Status: mapState(w.Status), LastChecked: updated.Time},
		Services:    services,
		LastUpdated: updated.Time,
	}
}
