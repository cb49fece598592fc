package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Subscribers is the number of connected websocket clients.
var Subscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "dashboard_subscribers",
		Help: "Number of connected broadcast subscribers",
	},
)

// EventsPublished counts broadcast events by kind.
var EventsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dashboard_events_published_total",
		Help: "Total number of events fanned out to subscribers",
	},
	[]string{"event"},
)

// DroppedSends counts per-subscriber sends that were dropped (closed or full queue).
var DroppedSends = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "dashboard_dropped_sends_total",
		Help: "Sends skipped because the subscriber was closed or its queue was full",
	},
)

// Tick generator
var (
	TickCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_tick_cycles_total",
			Help: "Tick cycles by outcome (ok, skipped)",
		},
		[]string{"outcome"},
	)

	TickCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_tick_cycle_duration_seconds",
			Help:    "Time spent in one tick cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// OrdersSubmitted counts order submissions by status (success, error).
var OrdersSubmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dashboard_orders_submitted_total",
		Help: "Total number of order submissions by outcome",
	},
	[]string{"status"},
)

// JournalFailures counts orders the broker rejected after they were saved.
var JournalFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "dashboard_journal_failures_total",
		Help: "Orders that could not be written to the order journal",
	},
)

func init() {
	prometheus.MustRegister(Subscribers, EventsPublished, DroppedSends)
	prometheus.MustRegister(TickCycles, TickCycleDuration)
	prometheus.MustRegister(OrdersSubmitted, JournalFailures)
}
