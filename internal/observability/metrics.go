// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for the gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toolgate"

// Metrics records gateway activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls     *prometheus.CounterVec
	toolLatency   *prometheus.HistogramVec
	gateDecisions *prometheus.CounterVec
	catalogHits   *prometheus.CounterVec
	chainSteps    prometheus.Histogram
	chainRuns     *prometheus.CounterVec
	sessionResets *prometheus.CounterVec
}

// NewMetrics creates the gateway metrics on a dedicated registry that also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and outcome kind.",
		}, []string{"tool", "outcome"}),
		toolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "backend_latency_seconds",
			Help:      "Backend call latency by tool.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"tool"}),
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Workflow gate decisions (allowed, tip, blocked).",
		}, []string{"decision"}),
		catalogHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "queries_total",
			Help:      "Catalog queries by operation.",
		}, []string{"operation"}),
		chainSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "steps",
			Help:      "Number of steps executed per batch run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		chainRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "runs_total",
			Help:      "Batch runs by result (completed, halted).",
		}, []string{"result"}),
		sessionResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resets_total",
			Help:      "Archived sessions by end reason.",
		}, []string{"reason"}),
	}
}

// ToolCall records one dispatched call. latency is the backend round trip;
// zero means the backend was never contacted.
func (m *Metrics) ToolCall(tool, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	if latency > 0 {
		m.toolLatency.WithLabelValues(tool).Observe(latency.Seconds())
	}
}

// GateDecision records a workflow gate decision.
func (m *Metrics) GateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(decision).Inc()
}

// CatalogQuery records a catalog query.
func (m *Metrics) CatalogQuery(operation string) {
	if m == nil {
		return
	}
	m.catalogHits.WithLabelValues(operation).Inc()
}

// ChainRun records a finished batch.
func (m *Metrics) ChainRun(steps int, completed bool) {
	if m == nil {
		return
	}
	m.chainSteps.Observe(float64(steps))
	result := "halted"
	if completed {
		result = "completed"
	}
	m.chainRuns.WithLabelValues(result).Inc()
}

// SessionReset records an archived session.
func (m *Metrics) SessionReset(reason string) {
	if m == nil {
		return
	}
	m.sessionResets.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
