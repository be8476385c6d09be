package mobile

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// generator produces synthetic chart data. It is safe for concurrent use.
type generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// uptime returns one entry per day ending today, oldest first. Roughly 95%
// of days land in [99.5, 100), the rest in [95, 99).
func (g *generator) uptime(days int, now time.Time) []domain.UptimeEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.UptimeEntry, 0, max(days, 0))
	for i := days - 1; i >= 0; i-- {
		day := now.Add(-time.Duration(i) * 24 * time.Hour)
		var uptime float64
		if g.rng.Float64() > 0.05 {
			uptime = 99.5 + g.rng.Float64()*0.5
		} else {
			uptime = 95.0 + g.rng.Float64()*4
		}
		out = append(out, domain.UptimeEntry{
			Date:   day.UTC().Format(time.DateOnly),
			Uptime: math.Min(round2(uptime), 99.99),
		})
	}
	return out
}

// responseTime returns one entry per hour ending now, oldest first, centred
// on 200ms with ±50ms jitter and never below 50ms.
func (g *generator) responseTime(hours int, now time.Time) []domain.ResponseTimeEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.ResponseTimeEntry, 0, max(hours, 0))
	for i := hours - 1; i >= 0; i-- {
		value := math.Max(50, 200+(g.rng.Float64()-0.5)*100)
		out = append(out, domain.ResponseTimeEntry{
			Timestamp:    now.Add(-time.Duration(i) * time.Hour).UTC(),
			ResponseTime: int64(math.Round(value)),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mockHealth is the all-operational view used when even the probes cannot run.
func mockHealth(now time.Time) domain.HealthStatus {
	rt := func(ms int64) *int64 { return &ms }
	return domain.HealthStatus{
		Overall: domain.OverallStatus{Status: domain.ServiceStateOperational, LastChecked: now},
		Services: map[string]domain.ProbeStatus{
			probeAPI:             {Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: rt(200)},
			probeDatabase:        {Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: rt(150)},
			probeStorage:         {Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: rt(100)},
			domain.ServiceAuth:   {Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: rt(80)},
			domain.ServiceMobile: {Status: domain.ServiceStateOperational, LastChecked: now, ResponseTime: rt(50)},
		},
		LastUpdated: now,
	}
}
