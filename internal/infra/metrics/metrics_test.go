package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestRankingMetrics(t *testing.T) {
	RankOperations.WithLabelValues("set_rank", "ok").Inc()
	RankRepairs.WithLabelValues("urgencyRank").Inc()
	SnapshotVersion.Set(7)

	names := gatheredNames(t)
	for _, name := range []string{
		"rankflow_rank_operations_total",
		"rankflow_rank_repairs_total",
		"rankflow_snapshot_version",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestPersistenceMetrics(t *testing.T) {
	PersistSaves.WithLabelValues("tasks", "ok").Inc()
	PersistLatency.WithLabelValues("tasks").Observe(0.02)
	PersistLag.Set(0)
	CollectionSize.WithLabelValues("tasks").Set(3)

	names := gatheredNames(t)
	for _, name := range []string{
		"rankflow_persist_saves_total",
		"rankflow_persist_latency_seconds",
		"rankflow_persist_lag_versions",
		"rankflow_collection_size",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthAndHTTPMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("storage").Set(1)
	HTTPRequests.WithLabelValues("/api/tasks", "200").Inc()

	names := gatheredNames(t)
	if !names["rankflow_health_check_status"] {
		t.Error("rankflow_health_check_status not found")
	}
	if !names["rankflow_http_requests_total"] {
		t.Error("rankflow_http_requests_total not found")
	}
}
