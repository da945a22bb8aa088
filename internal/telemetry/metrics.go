package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts scan invocations by type (asset, inventory, vendor).
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatwatch",
			Name:      "scans_total",
			Help:      "Total number of correlation scans executed",
		},
		[]string{"type"},
	)

	// MatchesCreated counts newly created suggested matches.
	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "threatwatch",
			Name:      "matches_created_total",
			Help:      "Total number of new suggested matches persisted",
		},
	)

	// FeedRequests counts external feed calls by source and outcome.
	FeedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatwatch",
			Name:      "feed_requests_total",
			Help:      "Total number of external vulnerability feed requests",
		},
		[]string{"source", "outcome"},
	)

	// SyncRuns counts sync ledger rows by source and status.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatwatch",
			Name:      "sync_runs_total",
			Help:      "Total number of feed sync runs recorded",
		},
		[]string{"source", "status"},
	)

	// AlertsDispatched counts per-client alert dispatches.
	AlertsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "threatwatch",
			Name:      "alerts_dispatched_total",
			Help:      "Total number of high-severity alert dispatches",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ScansTotal)
		prometheus.DefaultRegisterer.Register(MatchesCreated)
		prometheus.DefaultRegisterer.Register(FeedRequests)
		prometheus.DefaultRegisterer.Register(SyncRuns)
		prometheus.DefaultRegisterer.Register(AlertsDispatched)
	})
}
