// Package metrics defines Prometheus metrics for the relay.
//
// All metrics are registered with Registry, which /metrics serves.
// Names carry the chatrelay_ prefix, counters end in _total.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every relay metric plus Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// Subscribers is the number of open subscribers, updated on connect,
	// disconnect and broadcast.
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_subscribers",
		Help: "Registered subscribers.",
	})

	// SubscribersAccepted counts accepted subscriber connections by transport.
	SubscribersAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_subscribers_accepted_total",
			Help: "Accepted subscriber connections by transport.",
		},
		[]string{"transport"},
	)

	// SubscribersPruned counts closed subscribers removed during broadcast.
	SubscribersPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_subscribers_pruned_total",
		Help: "Closed subscribers removed from the registry.",
	})

	// EventsDetected counts new chat messages found by the snapshot cache.
	EventsDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_events_detected_total",
		Help: "New chat messages detected by the snapshot cache.",
	})

	// Deliveries counts per-subscriber delivery attempts by result.
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_event_deliveries_total",
			Help: "Per-subscriber event deliveries by result (delivered, dropped).",
		},
		[]string{"result"},
	)

	// FramesRejected counts inbound fragments dropped by reason.
	FramesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_frames_rejected_total",
			Help: "Inbound fragments dropped by reason.",
		},
		[]string{"reason"},
	)

	// Commands counts commands by kind and status (queued, ok, failed).
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_commands_total",
			Help: "Subscriber commands by kind and status.",
		},
		[]string{"kind", "status"},
	)

	// InboxDepth is the number of pending commands seen at the last tick.
	InboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_inbox_depth",
		Help: "Pending subscriber commands.",
	})

	// ScraperFailures counts failed scraper calls by operation.
	ScraperFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_scraper_failures_total",
			Help: "Failed scraper calls by operation.",
		},
		[]string{"op"},
	)

	// TickDurationSeconds is a histogram of event loop tick duration.
	TickDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatrelay_tick_duration_seconds",
		Help:    "Duration of one event loop tick in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// Sessions counts scraper sessions by how they ended.
	Sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_sessions_total",
			Help: "Scraper sessions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Subscribers,
		SubscribersAccepted,
		SubscribersPruned,
		EventsDetected,
		Deliveries,
		FramesRejected,
		Commands,
		InboxDepth,
		ScraperFailures,
		TickDurationSeconds,
		Sessions,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
