package notifications

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
)

// Notifier delivers one incident message.
type Notifier interface {
	Dispatch(ctx context.Context, kind MessageKind, incident domain.Incident) error
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	PollInterval time.Duration
}

// Watcher polls the incident feed and notifies subscribers about incidents
// that opened or resolved since the previous poll. The first real poll only
// records what is already open.
type Watcher struct {
	config   WatcherConfig
	source   IncidentSource
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	seeded bool
	open   map[string]domain.Incident

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a new incident watcher.
func NewWatcher(config WatcherConfig, source IncidentSource, notifier Notifier, logger *slog.Logger) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	return &Watcher{
		config:   config,
		source:   source,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		open:     make(map[string]domain.Incident),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Info("starting incident watcher", "poll_interval", w.config.PollInterval)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops polling and waits for an in-flight poll to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.logger.Info("incident watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll runs one watch cycle.
func (w *Watcher) Poll(ctx context.Context) {
	incidents, real := w.source.Incidents(ctx)
	if !real {
		watcherPolls.WithLabelValues("skipped").Inc()
		w.logger.Debug("incident feed is not live, skipping notifications")
		return
	}
	watcherPolls.WithLabelValues("real").Inc()

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]domain.Incident, len(incidents))
	byID := make(map[string]domain.Incident, len(incidents))
	for _, inc := range incidents {
		byID[inc.ID] = inc
		if inc.Status.IsOpen() {
			current[inc.ID] = inc
		}
	}

	if !w.seeded {
		w.open = current
		w.seeded = true
		incidentsTracked.Set(float64(len(current)))
		w.logger.Info("incident watcher seeded", "open_incidents", len(current))
		return
	}

	for _, inc := range sortedByCreation(current) {
		if _, known := w.open[inc.ID]; known {
			continue
		}
		w.notify(ctx, MessageIncident, inc)
	}

	for _, prev := range sortedByCreation(w.open) {
		if _, still := current[prev.ID]; still {
			continue
		}
		resolved, ok := byID[prev.ID]
		if !ok {
			// aged out of the feed window; treat as resolved now
			resolved = prev
			now := w.now().UTC()
			resolved.Status = domain.IncidentStatusResolved
			resolved.ResolvedAt = &now
		}
		w.notify(ctx, MessageResolution, resolved)
	}

	w.open = current
	incidentsTracked.Set(float64(len(current)))
}

func (w *Watcher) notify(ctx context.Context, kind MessageKind, inc domain.Incident) {
	w.logger.Info("incident change detected",
		"kind", kind,
		"incident_id", inc.ID,
		"severity", inc.Severity,
	)
	if err := w.notifier.Dispatch(ctx, kind, inc); err != nil {
		w.logger.Warn("incident notification incomplete",
			"kind", kind,
			"incident_id", inc.ID,
			"error", err,
		)
	}
}

func sortedByCreation(m map[string]domain.Incident) []domain.Incident {
	out := make([]domain.Incident, 0, len(m))
	for _, inc := range m {
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
