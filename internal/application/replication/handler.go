package replication

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// Replicator runs a replication attempt for a source key
type Replicator interface {
	Replicate(ctx context.Context, key string) (*replication.Attempt, error)
}

var _ Replicator = (*Service)(nil)

// EventHandler is the host-facing entry point. It receives every host event, starts a
// replication for matching ones and always lets the host continue its own handling.
type EventHandler struct {
	trigger    replication.Trigger
	replicator Replicator
	logger     *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(trigger replication.Trigger, replicator Replicator, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		trigger:    trigger,
		replicator: replicator,
		logger:     logger,
	}
}

// HandleItemEvent handles an item-interaction event. Item events never carry the key of the
// created document, so they never start a replication.
func (h *EventHandler) HandleItemEvent(_ context.Context, e replication.ItemEvent) (result replication.HandlerResult) {
	result = replication.Propagate
	defer h.recoverDispatch("item", e.FormUID, &result)
	return result
}

// HandleFormDataEvent handles a document-lifecycle event and replicates the document when
// the event reports a successful add on the trigger form.
func (h *EventHandler) HandleFormDataEvent(ctx context.Context, e replication.FormDataEvent) (result replication.HandlerResult) {
	result = replication.Propagate
	defer h.recoverDispatch("form_data", e.FormUID, &result)

	key, ok := h.trigger.Match(e)
	if !ok {
		return result
	}

	attempt, err := h.replicator.Replicate(ctx, key)
	switch {
	case errors.Is(err, replication.ErrReplicationInFlight):
		// dropped, not queued
	case err != nil:
		h.logger.Debug("replication attempt ended with error",
			zap.String("source_key", key),
			zap.Error(err),
		)
	default:
		h.logger.Debug("replication attempt completed",
			zap.String("source_key", key),
			zap.String("derived_key", attempt.DerivedKey),
		)
	}
	return result
}

// recoverDispatch keeps panics out of the host's dispatch path.
func (h *EventHandler) recoverDispatch(kind, formUID string, result *replication.HandlerResult) {
	if r := recover(); r != nil {
		h.logger.Error("panic in event handler",
			zap.String("event", kind),
			zap.String("form_uid", formUID),
			zap.Error(fmt.Errorf("%v", r)),
			zap.Stack("stack"),
		)
		*result = replication.Propagate
	}
}
