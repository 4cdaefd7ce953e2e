package machine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(registry)

	pm.RecordStep("c", "vertex", 12*time.Millisecond, "success")
	pm.RecordStep("c", "edge", time.Millisecond, "error")
	pm.IncrementFailures("c", "edge")
	pm.IncrementRecoveries("c", "blacklist", "recovered")
	pm.UpdateCoverage("c", Coverage{Total: 4, Covered: 2, Failed: 1, NotReachable: 1})

	if got := testutil.ToFloat64(pm.steps.WithLabelValues("c", "vertex", "success")); got != 1 {
		t.Errorf("expected 1 step, got %v", got)
	}
	if got := testutil.ToFloat64(pm.failures.WithLabelValues("c", "edge")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(pm.vertexStatus.WithLabelValues("c", "NOT_REACHABLE")); got != 1 {
		t.Errorf("expected 1 unreachable vertex, got %v", got)
	}
	if got := testutil.ToFloat64(pm.reachableCoverage.WithLabelValues("c")); got != 1 {
		t.Errorf("expected reachable coverage 1, got %v", got)
	}
	if got := testutil.CollectAndCount(pm.stepLatency); got != 2 {
		t.Errorf("expected 2 latency series, got %d", got)
	}

	t.Run("disabled", func(t *testing.T) {
		pm.Disable()
		pm.IncrementFailures("c", "edge")
		pm.Enable()
		if got := testutil.ToFloat64(pm.failures.WithLabelValues("c", "edge")); got != 1 {
			t.Errorf("expected disabled metrics to record nothing, got %v", got)
		}
	})

	t.Run("reset", func(t *testing.T) {
		pm.Reset()
		if got := testutil.CollectAndCount(pm.steps); got != 0 {
			t.Errorf("expected no series after reset, got %d", got)
		}
	})

	t.Run("nil is a no-op", func(t *testing.T) {
		var none *PrometheusMetrics
		none.RecordStep("c", "vertex", time.Millisecond, "success")
		none.IncrementFailures("c", "vertex")
		none.IncrementRecoveries("c", "x", "terminal")
		none.UpdateCoverage("c", Coverage{})
	})
}
