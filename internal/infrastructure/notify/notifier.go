package notify

import (
	"context"
	"errors"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log, for headless runs
type LogNotifier struct {
	logger *zap.Logger
}

var _ replication.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) SetStatusText(_ context.Context, text string, duration replication.MessageTime, severity replication.Severity) error {
	fields := []zap.Field{
		zap.String("text", text),
		zap.String("duration", string(duration)),
	}
	if severity == replication.SeverityError {
		n.logger.Warn("status", fields...)
		return nil
	}
	n.logger.Info("status", append(fields, zap.String("severity", string(severity)))...)
	return nil
}

func (n *LogNotifier) ShowModal(_ context.Context, text string, icon replication.Icon, buttons ...string) error {
	n.logger.Info("message box",
		zap.String("text", text),
		zap.String("icon", string(icon)),
		zap.Strings("buttons", buttons),
	)
	return nil
}

// Fanout sends every notification to all of its notifiers.
// It fails only when no notifier accepted the notification.
type Fanout []replication.Notifier

var _ replication.Notifier = Fanout(nil)

func (f Fanout) SetStatusText(ctx context.Context, text string, duration replication.MessageTime, severity replication.Severity) error {
	return f.each(func(n replication.Notifier) error {
		return n.SetStatusText(ctx, text, duration, severity)
	})
}

func (f Fanout) ShowModal(ctx context.Context, text string, icon replication.Icon, buttons ...string) error {
	return f.each(func(n replication.Notifier) error {
		return n.ShowModal(ctx, text, icon, buttons...)
	})
}

func (f Fanout) each(call func(replication.Notifier) error) error {
	if len(f) == 0 {
		return ErrNoListeners
	}
	var errs []error
	for _, n := range f {
		if err := call(n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(f) {
		return errors.Join(errs...)
	}
	return nil
}
