package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspage"

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notifications processed by channel, message kind and outcome",
		},
		[]string{"channel", "kind", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to deliver one notification on a channel",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)

	incidentsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "open_incidents_tracked",
			Help:      "Open incidents remembered by the incident watcher",
		},
	)

	watcherPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "watcher_polls_total",
			Help:      "Incident watcher polls by outcome (real, skipped)",
		},
		[]string{"outcome"},
	)
)

func recordSent(channel Channel, kind MessageKind, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	notificationsSent.WithLabelValues(string(channel), string(kind), status).Inc()
}

func recordDuration(channel Channel, d time.Duration) {
	notificationSendDuration.WithLabelValues(string(channel)).Observe(d.Seconds())
}
