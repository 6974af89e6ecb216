package opsmetrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// engineMetrics are the counters pushed to central monitoring. They live in
// their own registry so the push payload never includes process-local
// collectors from the default registry.
type engineMetrics struct {
	generations *prometheus.CounterVec
	transitions *prometheus.CounterVec
	sent        *prometheus.CounterVec
	engineError *prometheus.CounterVec
}

func newEngineMetrics(registry *prometheus.Registry, instanceID, version string) *engineMetrics {
	constLabels := prometheus.Labels{
		"instance_id": normalizeLabel(instanceID),
		"version":     normalizeLabel(version),
	}

	m := &engineMetrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_ops_statement_generations_total",
			Help:        "Statement generation outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_ops_statement_transitions_total",
			Help:        "Statement lifecycle transitions.",
			ConstLabels: constLabels,
		}, []string{"to"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_ops_statements_sent_total",
			Help:        "Statements delivered to recipients.",
			ConstLabels: constLabels,
		}, []string{"channel"}),
		engineError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_ops_engine_errors_total",
			Help:        "Unexpected engine errors by operation.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
	}

	registry.MustRegister(m.generations, m.transitions, m.sent, m.engineError)
	return m
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
