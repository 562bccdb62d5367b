// Package metrics exposes Prometheus instrumentation for the agent runtime:
// execution counts and latencies, delegation and MCP call outcomes, interrupt
// lifecycle transitions and structured-output retry pressure. All collectors
// live on a private registry so embedding applications keep full control over
// what they export.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all collectors for one runtime instance.
type Metrics struct {
	registry *prometheus.Registry

	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	delegations       *prometheus.CounterVec
	mcpCalls          *prometheus.CounterVec
	interrupts        *prometheus.CounterVec
	structuredRetries prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "executions_total",
			Help:      "Agent executions by agent, mode and outcome.",
		}, []string{"agent", "mode", "status"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentforge",
			Name:      "execution_duration_seconds",
			Help:      "Agent execution latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"agent", "mode"}),
		delegations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "delegations_total",
			Help:      "Sub-agent delegations by target and outcome.",
		}, []string{"sub_agent", "status"}),
		mcpCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "mcp_calls_total",
			Help:      "MCP JSON-RPC calls by server, method and outcome.",
		}, []string{"server", "method", "status"}),
		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "interrupt_transitions_total",
			Help:      "Interrupt lifecycle transitions by type and new status.",
		}, []string{"type", "status"}),
		structuredRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "structured_output_retries_total",
			Help:      "Repair retries triggered by structured output validation failures.",
		}),
	}
}

// ObserveExecution records one finished agent execution.
func (m *Metrics) ObserveExecution(agent, mode string, dur time.Duration, err error) {
	m.executions.WithLabelValues(agent, mode, statusLabel(err)).Inc()
	m.executionDuration.WithLabelValues(agent, mode).Observe(dur.Seconds())
}

// ObserveDelegation records a delegation attempt outcome.
func (m *Metrics) ObserveDelegation(subAgent string, err error) {
	m.delegations.WithLabelValues(subAgent, statusLabel(err)).Inc()
}

// ObserveMCPCall records one JSON-RPC round trip.
func (m *Metrics) ObserveMCPCall(server, method string, err error) {
	m.mcpCalls.WithLabelValues(server, method, statusLabel(err)).Inc()
}

// ObserveInterrupt records an interrupt lifecycle transition.
func (m *Metrics) ObserveInterrupt(interruptType, status string) {
	m.interrupts.WithLabelValues(interruptType, status).Inc()
}

// ObserveStructuredRetry records one validation-triggered repair retry.
func (m *Metrics) ObserveStructuredRetry() {
	m.structuredRetries.Inc()
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
