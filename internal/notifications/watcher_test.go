package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearconnect/statuspage/internal/domain"
)

type scriptedSource struct {
	mu    sync.Mutex
	feeds [][]domain.Incident
	real  []bool
	calls int
}

func (s *scriptedSource) Incidents(context.Context) ([]domain.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.feeds)-1)
	s.calls++
	return s.feeds[i], s.real[i]
}

type dispatched struct {
	kind MessageKind
	id   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []dispatched
	last domain.Incident
}

func (n *recordingNotifier) Dispatch(_ context.Context, kind MessageKind, inc domain.Incident) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, dispatched{kind: kind, id: inc.ID})
	n.last = inc
	return nil
}

func (n *recordingNotifier) snapshot() []dispatched {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dispatched(nil), n.sent...)
}

func incident(id string, status domain.IncidentStatus, created time.Time) domain.Incident {
	inc := domain.Incident{ID: id, Title: "issue " + id, Status: status, Severity: domain.SeverityMinor, CreatedAt: created}
	if status == domain.IncidentStatusResolved {
		resolved := created.Add(time.Hour)
		inc.ResolvedAt = &resolved
	}
	return inc
}

func TestWatcher_SeedsThenNotifiesChanges(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &scriptedSource{
		feeds: [][]domain.Incident{
			{incident("1", domain.IncidentStatusInvestigating, base)},
			{
				incident("1", domain.IncidentStatusInvestigating, base),
				incident("2", domain.IncidentStatusInvestigating, base.Add(time.Minute)),
			},
			{
				incident("1", domain.IncidentStatusResolved, base),
				incident("2", domain.IncidentStatusMonitoring, base.Add(time.Minute)),
			},
		},
		real: []bool{true, true, true},
	}
	notifier := &recordingNotifier{}
	w := NewWatcher(WatcherConfig{PollInterval: time.Hour}, source, notifier, discardLogger)
	ctx := context.Background()

	w.Poll(ctx)
	assert.Empty(t, notifier.snapshot(), "first poll only seeds")

	w.Poll(ctx)
	assert.Equal(t, []dispatched{{kind: MessageIncident, id: "2"}}, notifier.snapshot())

	w.Poll(ctx)
	assert.Equal(t, []dispatched{
		{kind: MessageIncident, id: "2"},
		{kind: MessageResolution, id: "1"},
	}, notifier.snapshot())
	require.NotNil(t, notifier.last.ResolvedAt)
}

func TestWatcher_IncidentLeavingFeedIsResolved(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &scriptedSource{
		feeds: [][]domain.Incident{
			{incident("1", domain.IncidentStatusInvestigating, base)},
			{},
		},
		real: []bool{true, true},
	}
	notifier := &recordingNotifier{}
	w := NewWatcher(WatcherConfig{}, source, notifier, discardLogger)
	fixed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.Poll(context.Background())
	w.Poll(context.Background())

	require.Equal(t, []dispatched{{kind: MessageResolution, id: "1"}}, notifier.snapshot())
	assert.Equal(t, domain.IncidentStatusResolved, notifier.last.Status)
	require.NotNil(t, notifier.last.ResolvedAt)
	assert.True(t, notifier.last.ResolvedAt.Equal(fixed))
}

func TestWatcher_IgnoresSyntheticFeeds(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock := []domain.Incident{incident("mock-1", domain.IncidentStatusInvestigating, base)}
	source := &scriptedSource{
		feeds: [][]domain.Incident{mock, {}, mock, {}},
		real:  []bool{false, true, false, true},
	}
	notifier := &recordingNotifier{}
	w := NewWatcher(WatcherConfig{}, source, notifier, discardLogger)

	for range 4 {
		w.Poll(context.Background())
	}
	assert.Empty(t, notifier.snapshot())
}

func TestWatcher_NoSeedFromSyntheticFeed(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	open := []domain.Incident{incident("1", domain.IncidentStatusInvestigating, base)}
	source := &scriptedSource{
		feeds: [][]domain.Incident{open, open, open},
		real:  []bool{false, true, true},
	}
	notifier := &recordingNotifier{}
	w := NewWatcher(WatcherConfig{}, source, notifier, discardLogger)

	for range 3 {
		w.Poll(context.Background())
	}
	assert.Empty(t, notifier.snapshot(), "the first real poll seeds even after synthetic polls")
}

func TestWatcher_StartStop(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &scriptedSource{
		feeds: [][]domain.Incident{
			{},
			{incident("9", domain.IncidentStatusInvestigating, base)},
		},
		real: []bool{true, true},
	}
	notifier := &recordingNotifier{}
	w := NewWatcher(WatcherConfig{PollInterval: 10 * time.Millisecond}, source, notifier, discardLogger)

	w.Start(context.Background())
	assert.Eventually(t, func() bool {
		return len(notifier.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()

	assert.Equal(t, []dispatched{{kind: MessageIncident, id: "9"}}, notifier.snapshot())
}
