package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Attempt outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// ReplicationMetrics records attempt counts, dropped triggers, copied lines and latency.
type ReplicationMetrics struct {
	logger *zap.Logger

	attemptsTotal    *Counter
	droppedTotal     *Counter
	linesCopiedTotal *Counter
	attemptDuration  *Histogram
}

// ReplicationMetricsConfig holds configuration for replication metrics.
type ReplicationMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewReplicationMetrics registers the replication instruments on cfg.Meter.
func NewReplicationMetrics(cfg ReplicationMetricsConfig) (*ReplicationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rm := &ReplicationMetrics{logger: logger}
	var err error

	rm.attemptsTotal, err = NewCounter(cfg.Meter,
		"replicator_attempts_total",
		"Total number of replication attempts by outcome",
		"{attempt}",
	)
	if err != nil {
		return nil, err
	}

	rm.droppedTotal, err = NewCounter(cfg.Meter,
		"replicator_triggers_dropped_total",
		"Triggers ignored because an attempt was already in flight",
		"{trigger}",
	)
	if err != nil {
		return nil, err
	}

	rm.linesCopiedTotal, err = NewCounter(cfg.Meter,
		"replicator_lines_copied_total",
		"Document lines copied into committed derived documents",
		"{line}",
	)
	if err != nil {
		return nil, err
	}

	rm.attemptDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "replicator_attempt_duration_seconds",
		Description: "Duration of replication attempts from trigger to outcome",
		Unit:        "s",
		Boundaries:  []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Replication metrics initialized")
	return rm, nil
}

// RecordAttempt counts one finished attempt. stage is the step that failed, empty on success.
func (rm *ReplicationMetrics) RecordAttempt(ctx context.Context, sourceKind, outcome, stage string) {
	attrs := []attribute.KeyValue{AttrSourceKind.String(sourceKind), AttrOutcome.String(outcome)}
	if stage != "" {
		attrs = append(attrs, AttrStage.String(stage))
	}
	rm.attemptsTotal.Inc(ctx, attrs...)
}

// RecordDropped counts a trigger refused by the in-flight guard.
func (rm *ReplicationMetrics) RecordDropped(ctx context.Context, sourceKind string) {
	rm.droppedTotal.Inc(ctx, AttrSourceKind.String(sourceKind))
}

// RecordLinesCopied adds n committed lines.
func (rm *ReplicationMetrics) RecordLinesCopied(ctx context.Context, sourceKind string, n int) {
	if n <= 0 {
		return
	}
	rm.linesCopiedTotal.Add(ctx, int64(n), AttrSourceKind.String(sourceKind))
}

// RecordDuration observes the wall time of an attempt.
func (rm *ReplicationMetrics) RecordDuration(ctx context.Context, sourceKind, outcome string, d time.Duration) {
	rm.attemptDuration.RecordDuration(ctx, d, AttrSourceKind.String(sourceKind), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReplicationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
