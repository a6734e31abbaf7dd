package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ReportsGenerated counts report requests by type, format and result
	// (ok, invalid, error).
	ReportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resort",
		Subsystem: "reports",
		Name:      "generated_total",
		Help:      "Total number of report requests, labeled by report type, output format and result.",
	}, []string{"type", "format", "result"})

	// ReportDuration is aggregation plus serialization time.
	ReportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "resort",
		Subsystem: "reports",
		Name:      "duration_seconds",
		Help:      "Time to aggregate and serialize a report.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type"})

	// CustomQueriesRejected counts ad-hoc queries refused by the guard.
	CustomQueriesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resort",
		Subsystem: "reports",
		Name:      "custom_queries_rejected_total",
		Help:      "Custom report queries rejected by the read-only guard.",
	})

	// ExportBytes is the size of produced export files.
	ExportBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "resort",
		Subsystem: "reports",
		Name:      "export_bytes",
		Help:      "Size of generated report files.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"format"})

	// WebSocketClients is the number of connected room-status subscribers.
	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "resort",
		Subsystem: "rooms",
		Name:      "websocket_clients",
		Help:      "Currently connected room-status websocket clients.",
	})

	// RoomStatusChanges counts room status updates by new status.
	RoomStatusChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resort",
		Subsystem: "rooms",
		Name:      "status_changes_total",
		Help:      "Room status transitions, labeled by the new status.",
	}, []string{"status"})

	// PaymentTransitions counts payment status transitions by outcome.
	PaymentTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resort",
		Subsystem: "payments",
		Name:      "transitions_total",
		Help:      "Payment status transitions, labeled by target status and result.",
	}, []string{"status", "result"})
)

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ReportsGenerated,
			ReportDuration,
			CustomQueriesRejected,
			ExportBytes,
			WebSocketClients,
			RoomStatusChanges,
			PaymentTransitions,
		)
	})
}
