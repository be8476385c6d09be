package mobile

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Names under which probe results are reported.
const (
	probeAPI      = domain.ServiceAPI
	probeDatabase = "database"
	probeStorage  = domain.ServiceStorage
)

// Response times reported for services that are not probed.
const (
	staticAuthResponseMS   = 50
	staticMobileResponseMS = 30
)

type probe struct {
	name string
	url  string
	// onError is the state reported when the request itself fails.
	onError domain.ServiceState
}

func (c *Client) probes() []probe {
	return []probe{
		{name: probeAPI, url: c.cfg.APIURL + "/health", onError: domain.ServiceStateDown},
		{name: probeDatabase, url: c.cfg.APIURL + "/posts?limit=1", onError: domain.ServiceStateDown},
		{name: probeStorage, url: c.cfg.StoragePingURL, onError: domain.ServiceStateDegraded},
	}
}

// probeAll checks the backend directly. Probes run concurrently and settle
// independently: a failing or panicking probe never affects its siblings.
func (c *Client) probeAll(ctx context.Context) (domain.HealthStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.HealthStatus{}, fmt.Errorf("probe: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "mobile.probe_all")
	defer span.End()

	probes := c.probes()
	results := make([]domain.ProbeStatus, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("probe panicked", "probe", p.name, "panic", r)
					zero := int64(0)
					results[i] = domain.ProbeStatus{
						Status:       domain.ServiceStateDown,
						LastChecked:  c.now().UTC(),
						ResponseTime: &zero,
					}
				}
			}()
			results[i] = c.runProbe(ctx, p)
		}()
	}
	wg.Wait()

	now := c.now().UTC()
	services := make(map[string]domain.ProbeStatus, len(probes)+2)
	states := make([]domain.ServiceState, 0, len(probes)+2)
	for i, p := range probes {
		services[p.name] = results[i]
		states = append(states, results[i].Status)
	}
	for name, ms := range map[string]int64{
		domain.ServiceAuth:   staticAuthResponseMS,
		domain.ServiceMobile: staticMobileResponseMS,
	} {
		rt := ms
		services[name] = domain.ProbeStatus{Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: &rt}
		states = append(states, domain.ServiceStateOperational)
	}

	return domain.HealthStatus{
		Overall:     domain.OverallStatus{Status: domain.WorstOf(states...), LastChecked: now},
		Services:    services,
		LastUpdated: now,
	}, nil
}

func (c *Client) runProbe(ctx context.Context, p probe) domain.ProbeStatus {
	if c.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		defer cancel()
	}

	start := time.Now()
	state := c.check(ctx, p)
	elapsed := time.Since(start).Milliseconds()

	if state != domain.ServiceStateOperational {
		c.logger.Warn("probe not operational", "probe", p.name, "status", state)
	}
	return domain.ProbeStatus{
		Status:       state,
		LastChecked:  c.now().UTC(),
		ResponseTime: &elapsed,
	}
}

// check returns operational on 2xx, degraded on any other response and
// p.onError when no response was received.
func (c *Client) check(ctx context.Context, p probe) domain.ServiceState {
	if p.url == "" {
		return p.onError
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return p.onError
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return p.onError
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.ServiceStateOperational
	}
	return domain.ServiceStateDegraded
}
