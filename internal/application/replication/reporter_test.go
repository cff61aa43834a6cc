package replication

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func finishedAttempt(key string, err error) *replication.Attempt {
	a := replication.NewAttempt(replication.KindSalesOrder, key, fixedNow)
	a.Advance(replication.StateFetching)
	if err != nil {
		a.Fail(err, fixedNow.Add(time.Second))
		return a
	}
	a.Advance(replication.StateMapping)
	a.Advance(replication.StateCommitting)
	a.LineCount = 2
	a.Succeed("5001", fixedNow.Add(time.Second))
	return a
}

func TestNotifyingReporter_ReportSuccess(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	notifier.On("SetStatusText", ctx, "Delivery Note 5001 created from 1001",
		replication.MessageTimeShort, replication.SeveritySuccess).Return(nil)
	notifier.On("ShowModal", ctx, mock.AnythingOfType("string"), replication.IconInfo, []string{"OK"}).Return(nil)

	core, logs := observer.New(zapcore.InfoLevel)
	NewNotifyingReporter(notifier, "Delivery Note", zap.New(core)).ReportSuccess(ctx, finishedAttempt("1001", nil))

	notifier.AssertExpectations(t)
	modal := notifier.Calls[1].Arguments.String(1)
	assert.Contains(t, modal, "5001")
	assert.Contains(t, modal, "1001")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "replication succeeded", logs.All()[0].Message)
	assert.Equal(t, "5001", logs.All()[0].ContextMap()["derived_key"])
}

func TestNotifyingReporter_ReportFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"not found", &replication.NotFoundError{Kind: replication.KindSalesOrder, Key: "9999"}, []string{"9999", "not found"}},
		{"host rejection", &replication.PersistenceError{Code: -5002, Description: "Quantity falls into negative inventory"}, []string{"-5002", "negative inventory"}},
		{"other", errors.New("connection reset"), []string{"connection reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := new(MockNotifier)
			notifier.On("SetStatusText", ctx, mock.Anything, replication.MessageTimeMedium, replication.SeverityError).Return(nil)
			notifier.On("ShowModal", ctx, mock.Anything, replication.IconError, []string{"OK"}).Return(nil)

			core, logs := observer.New(zapcore.ErrorLevel)
			a := finishedAttempt("9999", tt.err)
			NewNotifyingReporter(notifier, "Delivery Note", zap.New(core)).ReportFailure(ctx, a)

			notifier.AssertExpectations(t)
			status := notifier.Calls[0].Arguments.String(1)
			modal := notifier.Calls[1].Arguments.String(1)
			assert.Contains(t, status, "Error:")
			for _, s := range append(tt.want, "9999") {
				assert.Contains(t, status, s)
				assert.Contains(t, modal, s)
			}
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, "replication failed", logs.All()[0].Message)
		})
	}
}

func TestNotifyingReporter_NeverFails(t *testing.T) {
	ctx := context.Background()

	t.Run("notifier errors are swallowed", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("SetStatusText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no listeners"))
		notifier.On("ShowModal", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no listeners"))

		core, logs := observer.New(zapcore.WarnLevel)
		reporter := NewNotifyingReporter(notifier, "", zap.New(core))

		assert.NotPanics(t, func() { reporter.ReportSuccess(ctx, finishedAttempt("1001", nil)) })
		notifier.AssertNumberOfCalls(t, "ShowModal", 1)
		assert.Equal(t, 2, logs.FilterMessage("failed to notify user").Len())
	})

	t.Run("notifier panics are swallowed", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("SetStatusText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Panic("host UI gone")
		notifier.On("ShowModal", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		core, logs := observer.New(zapcore.WarnLevel)
		reporter := NewNotifyingReporter(notifier, "", zap.New(core))

		assert.NotPanics(t, func() { reporter.ReportFailure(ctx, finishedAttempt("1", errors.New("x"))) })
		notifier.AssertCalled(t, "ShowModal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1, logs.FilterMessage("failed to notify user").Len())
	})
}

func TestDescribeFailure(t *testing.T) {
	assert.Equal(t, "Source document 9999 was not found.",
		DescribeFailure("9999", &replication.NotFoundError{Key: "9999"}))
	assert.Contains(t, DescribeFailure("1001", fmt.Errorf("DeliveryNote created: %w", replication.ErrUnknownObjectKey)),
		"did not report its number")
	assert.Equal(t, "Replication of 1 failed.", DescribeFailure("1", nil))
	assert.Contains(t, DescribeFailure("1", errors.New("boom")), "boom")
}
