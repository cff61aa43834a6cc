package replication

import (
	"sync"
	"sync/atomic"
)

// Guard is a single-owner, non-blocking lock around replication attempts.
// One Guard is created at startup and shared by every entry point that can trigger an attempt.
// A trigger that finds the guard held is dropped; there is no queue.
type Guard struct {
	held atomic.Bool
}

// NewGuard creates a free guard
func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire takes ownership of the guard if it is free.
// It never blocks. The returned Lease must be released on every exit path, usually with defer.
func (g *Guard) TryAcquire() (*Lease, bool) {
	if !g.held.CompareAndSwap(false, true) {
		return nil, false
	}
	return &Lease{guard: g}, true
}

// Active reports whether an attempt currently holds the guard
func (g *Guard) Active() bool {
	return g.held.Load()
}

// Lease is the ownership token returned by TryAcquire
type Lease struct {
	guard *Guard
	once  sync.Once
}

// Release frees the guard. Calling it more than once is a no-op,
// so a lease can never free a guard acquired by a later attempt.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.guard.held.Store(false)
	})
}
