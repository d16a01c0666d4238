package runtime

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// PoolMetrics tracks worker pool operational metrics.
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
	Abandoned int64 `json:"abandoned"`
}

// ErrPoolShutdown is returned when work is submitted to a shut-down pool.
var ErrPoolShutdown = errors.New("worker pool is shut down")

// Pool is a bounded goroutine pool running handler invocations off the caller's
// goroutine. It is shared by every run of an Engine; a run never has more than one
// task in flight.
type Pool struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics PoolMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewPool creates a pool with the given max concurrency.
// A non-positive size means runtime.NumCPU().
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:  make(chan struct{}, size),
		done: make(chan struct{}),
	}
}

// Slot is one unit of pool capacity reserved by Acquire. It is freed when the
// work started with Go returns or when the owner abandons it, whichever is first.
type Slot struct {
	pool *Pool
	once sync.Once
}

// Acquire reserves a slot. It blocks while the pool is at capacity and respects
// context cancellation while waiting.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolShutdown
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolShutdown
	}

	// wg.Add must happen under the lock so Shutdown's Wait cannot miss it.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolShutdown
	}
	p.wg.Add(1)
	atomic.AddInt64(&p.metrics.Active, 1)
	p.mu.Unlock()

	return &Slot{pool: p}, nil
}

// Go runs fn on its own goroutine and frees the slot when fn returns. A non-nil
// error from fn only counts as a failure in Metrics.
func (s *Slot) Go(fn func() error) {
	p := s.pool
	go func() {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&p.metrics.Panics, 1)
			}
			atomic.AddInt64(&p.metrics.Completed, 1)
			s.release()
		}()
		if err := fn(); err != nil {
			atomic.AddInt64(&p.metrics.Failed, 1)
		}
	}()
}

// Abandon frees the slot while its work may still be running. The work keeps
// its goroutine but no longer counts against capacity, and Shutdown stops
// waiting for it.
func (s *Slot) Abandon() {
	s.once.Do(func() {
		atomic.AddInt64(&s.pool.metrics.Abandoned, 1)
		s.free()
	})
}

func (s *Slot) release() {
	s.once.Do(s.free)
}

func (s *Slot) free() {
	p := s.pool
	atomic.AddInt64(&p.metrics.Active, -1)
	<-p.sem
	p.wg.Done()
}

// Submit acquires a slot and runs fn on it.
func (p *Pool) Submit(ctx context.Context, fn func() error) error {
	slot, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	slot.Go(fn)
	return nil
}

// Shutdown prevents new submissions and waits for in-flight work to complete.
// Abandoned work is not waited for.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Metrics returns a snapshot of the current pool metrics.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
		Abandoned: atomic.LoadInt64(&p.metrics.Abandoned),
	}
}
