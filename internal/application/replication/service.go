package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Fetcher loads the source document of an attempt
type Fetcher interface {
	Fetch(ctx context.Context, kind replication.DocumentKind, key string) (*replication.SourceDocument, error)
}

// Committer persists a derived document and returns its new key
type Committer interface {
	Commit(ctx context.Context, doc *replication.DerivedDocument) (string, error)
}

// Reporter tells the user how an attempt ended
type Reporter interface {
	ReportSuccess(ctx context.Context, a *replication.Attempt)
	ReportFailure(ctx context.Context, a *replication.Attempt)
}

var (
	_ Fetcher   = (*DocumentFetcher)(nil)
	_ Committer = (*PersistenceCommitter)(nil)
	_ Reporter  = (*NotifyingReporter)(nil)
)

// ServiceConfig holds the static wiring of a Service
type ServiceConfig struct {
	SourceKind replication.DocumentKind
	Mapper     replication.Mapper
	// Clock returns the replication time stamped on derived documents. Defaults to time.Now.
	Clock func() time.Time
}

// Service runs replication attempts. At most one attempt runs at a time; triggers that
// arrive while one is in flight are dropped.
type Service struct {
	guard      *replication.Guard
	fetcher    Fetcher
	committer  Committer
	reporter   Reporter
	mapper     replication.Mapper
	sourceKind replication.DocumentKind
	now        func() time.Time
	logger     *zap.Logger
	metrics    *telemetry.ReplicationMetrics
}

// NewService creates a new replication Service
func NewService(
	guard *replication.Guard,
	fetcher Fetcher,
	committer Committer,
	reporter Reporter,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		guard:      guard,
		fetcher:    fetcher,
		committer:  committer,
		reporter:   reporter,
		mapper:     cfg.Mapper,
		sourceKind: cfg.SourceKind,
		now:        now,
		logger:     logger,
	}
}

// SetMetrics sets the replication metrics recorder. A nil recorder disables metrics.
func (s *Service) SetMetrics(m *telemetry.ReplicationMetrics) {
	s.metrics = m
}

// Busy reports whether an attempt is in flight
func (s *Service) Busy() bool {
	return s.guard.Active()
}

// Replicate runs one attempt for the source document with the given key.
// It returns replication.ErrReplicationInFlight without side effects if another attempt holds
// the guard. Otherwise the returned attempt is terminal and the error is its failure cause.
func (s *Service) Replicate(ctx context.Context, key string) (*replication.Attempt, error) {
	lease, ok := s.guard.TryAcquire()
	if !ok {
		s.logger.Debug("replication in flight, trigger dropped", zap.String("source_key", key))
		telemetry.AddEvent(trace.SpanFromContext(ctx), "trigger_dropped", telemetry.SpanAttrSourceKey, key)
		if s.metrics != nil {
			s.metrics.RecordDropped(ctx, string(s.sourceKind))
		}
		return nil, replication.ErrReplicationInFlight
	}
	defer lease.Release()

	attempt := replication.NewAttempt(s.sourceKind, key, s.now())

	ctx, span := telemetry.StartSpan(ctx, "replication.attempt",
		telemetry.WithAttribute(telemetry.SpanAttrAttemptID, attempt.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrSourceKind, string(s.sourceKind)),
		telemetry.WithAttribute(telemetry.SpanAttrSourceKey, key),
	)
	defer span.End()
	ctx = logger.WithAttemptID(ctx, attempt.ID.String())
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		s.logger.Debug("replication attempt traced",
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("trace_id", traceID),
		)
	}

	derivedKey, err := s.runRecovering(ctx, attempt)
	if err != nil {
		stage := attempt.State
		attempt.Fail(err, s.now())
		telemetry.RecordError(span, err)
		s.reporter.ReportFailure(ctx, attempt)
		s.record(ctx, attempt, telemetry.OutcomeFailed, string(stage))
		return attempt, err
	}

	attempt.Succeed(derivedKey, s.now())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDerivedKey, derivedKey,
		telemetry.SpanAttrLineCount, attempt.LineCount,
	)
	telemetry.SetOK(span)
	s.reporter.ReportSuccess(ctx, attempt)
	s.record(ctx, attempt, telemetry.OutcomeSucceeded, "")
	return attempt, nil
}

// runRecovering is run with a panic in any stage turned into the attempt's failure
func (s *Service) runRecovering(ctx context.Context, attempt *replication.Attempt) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("replication panicked",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("stage", string(attempt.State)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			key, err = "", fmt.Errorf("replication panicked in %s: %v", attempt.State, r)
		}
	}()
	return s.run(ctx, attempt)
}

func (s *Service) run(ctx context.Context, attempt *replication.Attempt) (string, error) {
	attempt.Advance(replication.StateFetching)
	src, err := s.fetch(ctx, attempt.SourceKey)
	if err != nil {
		return "", err
	}

	attempt.Advance(replication.StateMapping)
	doc, err := s.mapper.Map(src, s.now())
	if err != nil {
		return "", err
	}
	attempt.LineCount = doc.LineCount()

	attempt.Advance(replication.StateCommitting)
	return s.commit(ctx, doc)
}

func (s *Service) fetch(ctx context.Context, key string) (*replication.SourceDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "replication.fetch")
	defer span.End()

	src, err := s.fetcher.Fetch(ctx, s.sourceKind, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrLineCount, len(src.Lines))
	return src, nil
}

func (s *Service) commit(ctx context.Context, doc *replication.DerivedDocument) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "replication.commit",
		telemetry.WithAttribute(telemetry.SpanAttrDerivedKind, string(doc.Kind)),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, doc.LineCount()),
	)
	defer span.End()

	key, err := s.committer.Commit(ctx, doc)
	if err != nil {
		var pe *replication.PersistenceError
		if errors.As(err, &pe) {
			telemetry.SetAttributes(span, telemetry.SpanAttrHostCode, pe.Code)
		}
		telemetry.RecordError(span, err)
		return "", err
	}
	return key, nil
}

func (s *Service) record(ctx context.Context, a *replication.Attempt, outcome, stage string) {
	if s.metrics == nil {
		return
	}
	kind := string(a.SourceKind)
	s.metrics.RecordAttempt(ctx, kind, outcome, stage)
	s.metrics.RecordDuration(ctx, kind, outcome, a.Duration())
	if outcome == telemetry.OutcomeSucceeded {
		s.metrics.RecordLinesCopied(ctx, kind, a.LineCount)
	}
}
