package machine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects session metrics, all namespaced "mbt_":
//
//  1. steps_total (counter): steps taken.
//     Labels: context, kind (vertex/edge), status (success/error).
//  2. step_latency_ms (histogram): action execution time per step.
//     Labels: context, kind, status.
//  3. failures_total (counter): step failures handed to the exception strategy.
//     Labels: context, kind.
//  4. recoveries_total (counter): strategy outcomes.
//     Labels: context, strategy, outcome (recovered/terminal).
//  5. vertex_status (gauge): number of vertices per NodeStatus.
//     Labels: context, status.
//  6. reachable_coverage (gauge): covered fraction of still achievable vertices.
//     Labels: context.
//
// Labels carry context names, not session ids, to keep cardinality bounded.
// A nil *PrometheusMetrics records nothing, so the machine can call it
// unconditionally.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := machine.NewPrometheusMetrics(registry)
//	m, _ := machine.New(exec, contexts, machine.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	steps             *prometheus.CounterVec
	stepLatency       *prometheus.HistogramVec
	failures          *prometheus.CounterVec
	recoveries        *prometheus.CounterVec
	vertexStatus      *prometheus.GaugeVec
	reachableCoverage *prometheus.GaugeVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the session metrics with registry, the
// default registerer when nil.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mbt",
			Name:      "steps_total",
			Help:      "Steps taken through the model",
		}, []string{"context", "kind", "status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mbt",
			Name:      "step_latency_ms",
			Help:      "Action execution time of a step in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"context", "kind", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mbt",
			Name:      "failures_total",
			Help:      "Step failures handed to the exception strategy",
		}, []string{"context", "kind"}),
		recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mbt",
			Name:      "recoveries_total",
			Help:      "Exception strategy outcomes",
		}, []string{"context", "strategy", "outcome"}),
		vertexStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mbt",
			Name:      "vertex_status",
			Help:      "Number of vertices per node status",
		}, []string{"context", "status"}),
		reachableCoverage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mbt",
			Name:      "reachable_coverage",
			Help:      "Covered fraction of the vertices that are neither failed nor unreachable",
		}, []string{"context"}),
	}
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordStep counts a step and observes its latency.
func (pm *PrometheusMetrics) RecordStep(context, kind string, latency time.Duration, status string) {
	if !pm.on() {
		return
	}
	pm.steps.WithLabelValues(context, kind, status).Inc()
	pm.stepLatency.WithLabelValues(context, kind, status).Observe(float64(latency.Milliseconds()))
}

func (pm *PrometheusMetrics) IncrementFailures(context, kind string) {
	if !pm.on() {
		return
	}
	pm.failures.WithLabelValues(context, kind).Inc()
}

// IncrementRecoveries counts a strategy outcome: "recovered" or "terminal".
func (pm *PrometheusMetrics) IncrementRecoveries(context, strategy, outcome string) {
	if !pm.on() {
		return
	}
	pm.recoveries.WithLabelValues(context, strategy, outcome).Inc()
}

// UpdateCoverage sets the vertex_status and reachable_coverage gauges.
func (pm *PrometheusMetrics) UpdateCoverage(context string, cov Coverage) {
	if !pm.on() {
		return
	}
	pm.vertexStatus.WithLabelValues(context, NodeNotCovered.String()).Set(float64(cov.NotCovered))
	pm.vertexStatus.WithLabelValues(context, NodeCovered.String()).Set(float64(cov.Covered))
	pm.vertexStatus.WithLabelValues(context, NodeFailed.String()).Set(float64(cov.Failed))
	pm.vertexStatus.WithLabelValues(context, NodeNotReachable.String()).Set(float64(cov.NotReachable))
	pm.reachableCoverage.WithLabelValues(context).Set(cov.Reachable())
}

// Disable stops recording until Enable is called.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset clears every series, e.g. between test suites sharing a registry.
func (pm *PrometheusMetrics) Reset() {
	pm.steps.Reset()
	pm.stepLatency.Reset()
	pm.failures.Reset()
	pm.recoveries.Reset()
	pm.vertexStatus.Reset()
	pm.reachableCoverage.Reset()
}
