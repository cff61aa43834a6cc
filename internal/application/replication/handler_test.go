package replication

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var salesOrderTrigger = replication.Trigger{FormType: "139", SourceKind: replication.KindSalesOrder}

func addEvent(key string) replication.FormDataEvent {
	return replication.FormDataEvent{
		FormUID:       "F_1",
		FormType:      "139",
		EventType:     replication.EventFormDataAdd,
		BeforeAction:  false,
		ActionSuccess: true,
		ObjectKey:     key,
	}
}

func TestEventHandler_HandleFormDataEvent_Triggers(t *testing.T) {
	ctx := context.Background()
	replicator := new(MockReplicator)
	replicator.On("Replicate", ctx, "1001").Return(&replication.Attempt{DerivedKey: "5001"}, nil)

	result := NewEventHandler(salesOrderTrigger, replicator, zap.NewNop()).HandleFormDataEvent(ctx, addEvent("1001"))

	assert.Equal(t, replication.Propagate, result)
	replicator.AssertExpectations(t)
}

func TestEventHandler_HandleFormDataEvent_NonTriggersHaveNoEffect(t *testing.T) {
	events := map[string]replication.FormDataEvent{}

	other := addEvent("1")
	other.FormType = "140"
	events["other form"] = other

	before := addEvent("1")
	before.BeforeAction = true
	events["before action"] = before

	failed := addEvent("1")
	failed.ActionSuccess = false
	events["failed action"] = failed

	update := addEvent("1")
	update.EventType = replication.EventFormDataUpdate
	events["update"] = update

	for _, formType := range []string{"", "133", "142", "149"} {
		e := addEvent("1")
		e.FormType = formType
		events["form "+formType] = e
	}

	for name, e := range events {
		t.Run(name, func(t *testing.T) {
			replicator := new(MockReplicator)
			core, logs := observer.New(zapcore.DebugLevel)

			result := NewEventHandler(salesOrderTrigger, replicator, zap.New(core)).HandleFormDataEvent(context.Background(), e)

			assert.True(t, result.BubbleEvent)
			replicator.AssertNotCalled(t, "Replicate", mock.Anything, mock.Anything)
			assert.Zero(t, logs.Len(), "rejected events are not logged")
		})
	}
}

func TestEventHandler_HandleFormDataEvent_AlwaysPropagates(t *testing.T) {
	ctx := context.Background()

	t.Run("dropped trigger", func(t *testing.T) {
		replicator := new(MockReplicator)
		replicator.On("Replicate", ctx, "1002").Return(nil, replication.ErrReplicationInFlight)

		result := NewEventHandler(salesOrderTrigger, replicator, zap.NewNop()).HandleFormDataEvent(ctx, addEvent("1002"))
		assert.True(t, result.BubbleEvent)
	})

	t.Run("failed attempt", func(t *testing.T) {
		replicator := new(MockReplicator)
		replicator.On("Replicate", ctx, "9999").Return(&replication.Attempt{}, &replication.NotFoundError{Key: "9999"})

		result := NewEventHandler(salesOrderTrigger, replicator, zap.NewNop()).HandleFormDataEvent(ctx, addEvent("9999"))
		assert.True(t, result.BubbleEvent)
	})

	t.Run("panic is contained", func(t *testing.T) {
		replicator := new(MockReplicator)
		replicator.On("Replicate", ctx, "1001").Panic("host handle invalid")

		core, logs := observer.New(zapcore.ErrorLevel)
		handler := NewEventHandler(salesOrderTrigger, replicator, zap.New(core))

		var result replication.HandlerResult
		assert.NotPanics(t, func() { result = handler.HandleFormDataEvent(ctx, addEvent("1001")) })
		assert.True(t, result.BubbleEvent)
		assert.Equal(t, 1, logs.FilterMessage("panic in event handler").Len())
	})

	t.Run("unexpected error", func(t *testing.T) {
		replicator := new(MockReplicator)
		replicator.On("Replicate", ctx, "1").Return(nil, errors.New("boom"))

		result := NewEventHandler(salesOrderTrigger, replicator, zap.NewNop()).HandleFormDataEvent(ctx, addEvent("1"))
		assert.True(t, result.BubbleEvent)
	})
}

func TestEventHandler_HandleItemEvent(t *testing.T) {
	replicator := new(MockReplicator)
	handler := NewEventHandler(salesOrderTrigger, replicator, zap.NewNop())

	for _, e := range []replication.ItemEvent{
		{FormUID: "F_1", FormType: "139", ItemUID: "1", EventType: replication.EventItemPressed},
		{FormUID: "F_1", FormType: "139", ItemUID: "1", EventType: replication.EventItemPressed, BeforeAction: true},
		{FormUID: "F_2", FormType: "133", ItemUID: "2", EventType: replication.EventClick},
	} {
		assert.Equal(t, replication.Propagate, handler.HandleItemEvent(context.Background(), e))
	}
	replicator.AssertNotCalled(t, "Replicate", mock.Anything, mock.Anything)
}

func TestEventHandler_HandleFormDataEvent_XMLKey(t *testing.T) {
	ctx := context.Background()
	replicator := new(MockReplicator)
	replicator.On("Replicate", ctx, "1001").Return(&replication.Attempt{}, nil)

	e := addEvent(`<?xml version="1.0" encoding="UTF-16" ?><DocumentParams><DocEntry>1001</DocEntry></DocumentParams>`)
	NewEventHandler(salesOrderTrigger, replicator, zap.NewNop()).HandleFormDataEvent(ctx, e)

	replicator.AssertExpectations(t)
}

func TestEventHandler_HandleFormDataEvent_PanickingStageIsReported(t *testing.T) {
	reporter := &recordingReporter{}
	svc := NewService(replication.NewGuard(),
		fetcherFunc(func(context.Context, replication.DocumentKind, string) (*replication.SourceDocument, error) {
			panic("handle released")
		}),
		nil, reporter,
		ServiceConfig{SourceKind: replication.KindSalesOrder},
		zap.NewNop(),
	)
	handler := NewEventHandler(salesOrderTrigger, svc, zap.NewNop())

	result := handler.HandleFormDataEvent(context.Background(), addEvent("1001"))

	assert.True(t, result.BubbleEvent)
	assert.Len(t, reporter.failures, 1)
	assert.Empty(t, reporter.successes)
	assert.False(t, svc.Busy())
}
