package replication

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState is the stage a replication attempt has reached
type AttemptState string

const (
	StateIdle       AttemptState = "IDLE"
	StateTriggered  AttemptState = "TRIGGERED"
	StateFetching   AttemptState = "FETCHING"
	StateMapping    AttemptState = "MAPPING"
	StateCommitting AttemptState = "COMMITTING"
	StateSucceeded  AttemptState = "SUCCEEDED"
	StateFailed     AttemptState = "FAILED"
)

// IsTerminal reports whether the state ends an attempt
func (s AttemptState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransitionTo checks if the state can transition to the target state
func (s AttemptState) CanTransitionTo(target AttemptState) bool {
	switch s {
	case StateIdle:
		return target == StateTriggered
	case StateTriggered:
		return target == StateFetching
	case StateFetching:
		return target == StateMapping || target == StateFailed
	case StateMapping:
		return target == StateCommitting || target == StateFailed
	case StateCommitting:
		return target == StateSucceeded || target == StateFailed
	case StateSucceeded, StateFailed:
		return target == StateIdle
	}
	return false
}

// Attempt records one end-to-end run of the pipeline for a single trigger
type Attempt struct {
	ID         uuid.UUID
	SourceKind DocumentKind
	SourceKey  string
	State      AttemptState
	DerivedKey string
	LineCount  int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewAttempt creates a triggered attempt for the given source document
func NewAttempt(kind DocumentKind, key string, now time.Time) *Attempt {
	return &Attempt{
		ID:         uuid.New(),
		SourceKind: kind,
		SourceKey:  key,
		State:      StateTriggered,
		StartedAt:  now,
	}
}

// Advance moves the attempt to the next stage. Invalid transitions are ignored and reported.
func (a *Attempt) Advance(target AttemptState) bool {
	if !a.State.CanTransitionTo(target) {
		return false
	}
	a.State = target
	return true
}

// Succeed marks the attempt succeeded with the key assigned by the host
func (a *Attempt) Succeed(derivedKey string, now time.Time) {
	if a.Advance(StateSucceeded) {
		a.DerivedKey = derivedKey
		a.FinishedAt = now
	}
}

// Fail marks the attempt failed with the given cause
func (a *Attempt) Fail(err error, now time.Time) {
	if a.Advance(StateFailed) {
		a.Err = err
		a.FinishedAt = now
	}
}

// Duration returns how long the attempt ran, or zero if it has not finished
func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}
