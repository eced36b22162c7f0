// Package metrics provides Prometheus metrics for RankFlow:
// counters, gauges and histograms for ranking operations, collection sizes
// and the persistence pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ranking ────────────────────────────────────────────────────────────────

// RankOperations counts engine operations by name and result
// (ok, noop, error).
var RankOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rankflow",
	Name:      "rank_operations_total",
	Help:      "Ranking engine operations by op and result.",
}, []string{"op", "result"})

// RankRepairs counts collections renormalised on load because their ranks
// were not dense.
var RankRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rankflow",
	Name:      "rank_repairs_total",
	Help:      "Criteria renormalised on load because ranks were not dense.",
}, []string{"criterion"})

// SnapshotVersion tracks the latest committed engine snapshot version.
var SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rankflow",
	Name:      "snapshot_version",
	Help:      "Latest committed ranking snapshot version.",
})

// ─── Collections ────────────────────────────────────────────────────────────

// CollectionSize tracks the number of records per collection.
var CollectionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "rankflow",
	Name:      "collection_size",
	Help:      "Number of records per collection.",
}, []string{"collection"})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistSaves counts save attempts by collection and result.
var PersistSaves = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rankflow",
	Name:      "persist_saves_total",
	Help:      "Save attempts by collection and result.",
}, []string{"collection", "result"})

// PersistLatency tracks save duration in seconds.
var PersistLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "rankflow",
	Name:      "persist_latency_seconds",
	Help:      "Duration of collection saves in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"collection"})

// PersistLag tracks how many snapshot versions the store trails memory by.
var PersistLag = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rankflow",
	Name:      "persist_lag_versions",
	Help:      "Snapshot versions committed in memory but not yet saved.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "rankflow",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rankflow",
	Name:      "http_requests_total",
	Help:      "API requests by route and status.",
}, []string{"route", "status"})
