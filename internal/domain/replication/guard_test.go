package replication

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_TryAcquire(t *testing.T) {
	t.Run("acquires a free guard", func(t *testing.T) {
		g := NewGuard()
		lease, ok := g.TryAcquire()
		require.True(t, ok)
		require.NotNil(t, lease)
		assert.True(t, g.Active())
	})

	t.Run("refuses while held without blocking", func(t *testing.T) {
		g := NewGuard()
		lease, ok := g.TryAcquire()
		require.True(t, ok)
		defer lease.Release()

		second, ok := g.TryAcquire()
		assert.False(t, ok)
		assert.Nil(t, second)
	})

	t.Run("is free again after release", func(t *testing.T) {
		g := NewGuard()
		lease, _ := g.TryAcquire()
		lease.Release()

		assert.False(t, g.Active())
		next, ok := g.TryAcquire()
		assert.True(t, ok)
		next.Release()
	})
}

func TestLease_Release(t *testing.T) {
	t.Run("double release does not free a later owner", func(t *testing.T) {
		g := NewGuard()
		first, _ := g.TryAcquire()
		first.Release()

		second, ok := g.TryAcquire()
		require.True(t, ok)

		first.Release()
		assert.True(t, g.Active(), "stale lease must not release the current owner")

		second.Release()
		assert.False(t, g.Active())
	})

	t.Run("nil lease is a no-op", func(t *testing.T) {
		var lease *Lease
		assert.NotPanics(t, func() { lease.Release() })
	})
}

func TestGuard_AtMostOneOwner(t *testing.T) {
	g := NewGuard()
	lease, ok := g.TryAcquire()
	require.True(t, ok)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l, ok := g.TryAcquire(); ok {
				acquired.Add(1)
				l.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), acquired.Load(), "no trigger may start while an attempt is active")
	lease.Release()
}

func TestGuard_ConcurrentContention(t *testing.T) {
	g := NewGuard()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, ok := g.TryAcquire()
			if !ok {
				return
			}
			defer lease.Release()
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.False(t, g.Active())
}
