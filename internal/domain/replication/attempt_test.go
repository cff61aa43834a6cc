package replication

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AttemptState
		want     bool
	}{
		{StateIdle, StateTriggered, true},
		{StateIdle, StateFetching, false},
		{StateTriggered, StateFetching, true},
		{StateTriggered, StateFailed, false},
		{StateFetching, StateMapping, true},
		{StateFetching, StateFailed, true},
		{StateMapping, StateCommitting, true},
		{StateMapping, StateFailed, true},
		{StateCommitting, StateSucceeded, true},
		{StateCommitting, StateFailed, true},
		{StateSucceeded, StateIdle, true},
		{StateFailed, StateIdle, true},
		{StateSucceeded, StateFailed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestAttempt_Lifecycle(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success path", func(t *testing.T) {
		a := NewAttempt(KindSalesOrder, "1001", start)
		assert.Equal(t, StateTriggered, a.State)
		assert.True(t, a.Advance(StateFetching))
		assert.True(t, a.Advance(StateMapping))
		assert.True(t, a.Advance(StateCommitting))
		a.Succeed("5001", start.Add(2*time.Second))

		assert.Equal(t, StateSucceeded, a.State)
		assert.True(t, a.State.IsTerminal())
		assert.Equal(t, "5001", a.DerivedKey)
		assert.Equal(t, 2*time.Second, a.Duration())
	})

	t.Run("failure while fetching", func(t *testing.T) {
		a := NewAttempt(KindSalesOrder, "9999", start)
		a.Advance(StateFetching)
		cause := errors.New("boom")
		a.Fail(cause, start.Add(time.Second))

		assert.Equal(t, StateFailed, a.State)
		assert.Equal(t, cause, a.Err)
		assert.Empty(t, a.DerivedKey)
	})

	t.Run("cannot skip stages", func(t *testing.T) {
		a := NewAttempt(KindSalesOrder, "1", start)
		assert.False(t, a.Advance(StateCommitting))
		a.Succeed("x", start)
		assert.Equal(t, StateTriggered, a.State)
		assert.Zero(t, a.Duration())
	})
}

func TestErrors(t *testing.T) {
	nf := &NotFoundError{Kind: KindSalesOrder, Key: "9999"}
	assert.Contains(t, nf.Error(), "9999")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsPersistence(nf))

	pe := &PersistenceError{Code: -5002, Description: "Quantity falls into negative inventory"}
	assert.Contains(t, pe.Error(), "-5002")
	assert.Contains(t, pe.Error(), "negative inventory")
	assert.True(t, IsPersistence(pe))

	cause := errors.New("dial tcp: refused")
	ce := &ConnectError{Target: "https://b1:50000", Err: cause}
	assert.ErrorIs(t, ce, cause)

	re := &ReportingError{Op: "status", Err: cause}
	assert.ErrorIs(t, re, cause)
}
