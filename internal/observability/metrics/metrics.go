package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes application-level instruments for the statement engine.
type Metrics struct {
	generationRuns     metric.Int64Counter
	generationDuration metric.Float64Histogram
	statementsSent     metric.Int64Counter
	transitions        metric.Int64Counter
	sequenceRetries    metric.Int64Counter
	bulkRuns           metric.Int64Counter
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "backoffice"
	}
	meter := provider.Meter(name)

	generationRuns, err := meter.Int64Counter("backoffice_statement_generation_total")
	if err != nil {
		return nil, err
	}
	generationDuration, err := meter.Float64Histogram("backoffice_statement_generation_duration_seconds")
	if err != nil {
		return nil, err
	}
	statementsSent, err := meter.Int64Counter("backoffice_statements_sent_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("backoffice_statement_transitions_total")
	if err != nil {
		return nil, err
	}
	sequenceRetries, err := meter.Int64Counter("backoffice_sequence_retries_total")
	if err != nil {
		return nil, err
	}
	bulkRuns, err := meter.Int64Counter("backoffice_bulk_generation_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generationRuns:     generationRuns,
		generationDuration: generationDuration,
		statementsSent:     statementsSent,
		transitions:        transitions,
		sequenceRetries:    sequenceRetries,
		bulkRuns:           bulkRuns,
	}, nil
}

// RecordGeneration records one finished generation task.
func (m *Metrics) RecordGeneration(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.generationRuns.Add(ctx, 1, attrs)
	m.generationDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSent increments delivered statement counts.
func (m *Metrics) RecordSent(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.statementsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", strings.TrimSpace(channel)),
	))
}

// RecordTransition increments lifecycle transition counts.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string, accepted bool) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
		attribute.Bool("accepted", accepted),
	))
}

// RecordSequenceRetry increments document number collision retries.
func (m *Metrics) RecordSequenceRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.sequenceRetries.Add(ctx, 1)
}

// RecordBulkRun records one bulk generation request.
func (m *Metrics) RecordBulkRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.bulkRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}
