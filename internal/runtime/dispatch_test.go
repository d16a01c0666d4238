package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	defer pool.Shutdown()

	var running, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		err := pool.Submit(context.Background(), func() error {
			defer wg.Done()
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestPool_Metrics(t *testing.T) {
	pool := NewPool(1)

	require.NoError(t, pool.Submit(context.Background(), func() error { return nil }))
	require.NoError(t, pool.Submit(context.Background(), func() error { return errors.New("nope") }))
	require.NoError(t, pool.Submit(context.Background(), func() error { panic("boom") }))
	pool.Shutdown()

	m := pool.Metrics()
	assert.Equal(t, int64(0), m.Active)
	assert.Equal(t, int64(3), m.Completed)
	assert.Equal(t, int64(1), m.Failed)
	assert.Equal(t, int64(1), m.Panics)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(1)
	pool.Shutdown()
	pool.Shutdown()

	err := pool.Submit(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestPool_SubmitRespectsContext(t *testing.T) {
	pool := NewPool(1)
	defer pool.Shutdown()

	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestNewPool_DefaultSize(t *testing.T) {
	pool := NewPool(0)
	defer pool.Shutdown()
	assert.Greater(t, cap(pool.sem), 0)
}

func TestPool_AbandonFreesCapacity(t *testing.T) {
	pool := NewPool(1)

	hang := make(chan struct{})
	defer close(hang)
	slot, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	slot.Go(func() error {
		<-hang
		return nil
	})
	slot.Abandon()
	slot.Abandon()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, pool.Submit(ctx, func() error { return nil }))

	pool.Shutdown()
	m := pool.Metrics()
	assert.Equal(t, int64(0), m.Active)
	assert.Equal(t, int64(1), m.Abandoned)
	assert.Equal(t, int64(1), m.Completed)
}
