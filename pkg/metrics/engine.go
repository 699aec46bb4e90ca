package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lifecycle engine counters, exposed on the same registry the HTTP metrics
// listener serves.
var (
	RemindersDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_dispatched_total",
		Help: "Reminders successfully handed to the notification transport.",
	})
	ReminderSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_send_failures_total",
		Help: "Reminder transport failures; the cycle is retried on the next run.",
	})
	OrdersMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_materialized_total",
		Help: "Due subscription cycles converted into orders.",
	})
	MaterializeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "materialize_failures_total",
		Help: "Cycles deferred because the catalog or order ledger failed.",
	})
	EngineRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_run_dur_ms",
		Help:    "Duration of reminder and materializer runs in milliseconds.",
		Buckets: HistogramBuckets,
	}, []string{"job"})
)
