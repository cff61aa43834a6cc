package replication

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// modalButton is the single button offered on every confirmation dialog
const modalButton = "OK"

// NotifyingReporter tells the user how an attempt ended through the host notifier.
// It never fails its caller: notifier errors and panics are logged and dropped.
type NotifyingReporter struct {
	notifier     replication.Notifier
	derivedLabel string
	logger       *zap.Logger
}

// NewNotifyingReporter creates a reporter. derivedLabel names the derived document kind in messages.
func NewNotifyingReporter(notifier replication.Notifier, derivedLabel string, logger *zap.Logger) *NotifyingReporter {
	if derivedLabel == "" {
		derivedLabel = "Document"
	}
	return &NotifyingReporter{
		notifier:     notifier,
		derivedLabel: derivedLabel,
		logger:       logger,
	}
}

// ReportSuccess announces the derived document created by a.
func (r *NotifyingReporter) ReportSuccess(ctx context.Context, a *replication.Attempt) {
	r.logger.Info("replication succeeded",
		zap.String("attempt_id", a.ID.String()),
		zap.String("source_key", a.SourceKey),
		zap.String("derived_key", a.DerivedKey),
		zap.Int("line_count", a.LineCount),
		zap.Duration("duration", a.Duration()),
	)

	status := fmt.Sprintf("%s %s created from %s", r.derivedLabel, a.DerivedKey, a.SourceKey)
	modal := fmt.Sprintf("%s %s was created from source document %s with %d line(s).",
		r.derivedLabel, a.DerivedKey, a.SourceKey, a.LineCount)

	r.notify(ctx, a, status, replication.MessageTimeShort, replication.SeveritySuccess, modal, replication.IconInfo)
}

// ReportFailure announces why a failed. Both messages include the source key.
func (r *NotifyingReporter) ReportFailure(ctx context.Context, a *replication.Attempt) {
	r.logger.Error("replication failed",
		zap.String("attempt_id", a.ID.String()),
		zap.String("source_kind", string(a.SourceKind)),
		zap.String("source_key", a.SourceKey),
		zap.Duration("duration", a.Duration()),
		zap.Error(a.Err),
	)

	text := DescribeFailure(a.SourceKey, a.Err)
	r.notify(ctx, a, "Error: "+text, replication.MessageTimeMedium, replication.SeverityError, text, replication.IconError)
}

func (r *NotifyingReporter) notify(
	ctx context.Context,
	a *replication.Attempt,
	status string,
	duration replication.MessageTime,
	severity replication.Severity,
	modal string,
	icon replication.Icon,
) {
	r.guard(a, "status", func() error {
		return r.notifier.SetStatusText(ctx, status, duration, severity)
	})
	r.guard(a, "modal", func() error {
		return r.notifier.ShowModal(ctx, modal, icon, modalButton)
	})
}

// guard runs one notifier call, converting errors and panics into a logged *ReportingError.
func (r *NotifyingReporter) guard(a *replication.Attempt, op string, call func() error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = call()
	}()
	if err == nil {
		return
	}
	r.logger.Warn("failed to notify user",
		zap.String("attempt_id", a.ID.String()),
		zap.Error(&replication.ReportingError{Op: op, Err: err}),
	)
}

// DescribeFailure renders err as a user-facing sentence that names sourceKey.
func DescribeFailure(sourceKey string, err error) string {
	var (
		notFound    *replication.NotFoundError
		persistence *replication.PersistenceError
	)
	switch {
	case errors.Is(err, replication.ErrUnknownObjectKey):
		return fmt.Sprintf("A document was created from %s but the host did not report its number. "+
			"Check the host before replicating %s again.", sourceKey, sourceKey)
	case errors.As(err, &notFound):
		return fmt.Sprintf("Source document %s was not found.", sourceKey)
	case errors.As(err, &persistence):
		return fmt.Sprintf("Could not create document from %s (code %d): %s",
			sourceKey, persistence.Code, persistence.Description)
	case err != nil:
		return fmt.Sprintf("Replication of %s failed: %v", sourceKey, err)
	default:
		return fmt.Sprintf("Replication of %s failed.", sourceKey)
	}
}
