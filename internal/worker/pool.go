// Package worker runs blocking work off the event loop on a bounded pool.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const DefaultWorkers = 4

type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Go runs fn on the pool once a slot is free. It never blocks the caller.
// fn is skipped when ctx ends before a slot frees up.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context)) {
	p.run(ctx, fn, nil)
}

func (p *Pool) run(ctx context.Context, fn func(ctx context.Context), skipped func(err error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			if skipped != nil {
				skipped(err)
			}
			return
		}
		defer p.sem.Release(1)
		fn(ctx)
	}()
}

// Wait blocks until every submitted task has returned or given up on its slot.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Future is the result of a task submitted with Submit. Once cancelled it
// never delivers a value.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	value     T
	err       error
	cancelled bool
}

// Submit schedules fn on p and returns a Future for its result.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	p.run(ctx, func(ctx context.Context) {
		v, err := fn(ctx)
		f.resolve(v, err)
		cancel()
	}, func(err error) {
		var zero T
		f.resolve(zero, err)
		cancel()
	})
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return
	default:
	}
	if f.cancelled {
		var zero T
		v, err = zero, context.Canceled
	}
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks for the result or until ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.cancelled {
			var zero T
			return zero, context.Canceled
		}
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel discards the result and cancels the task's context. A task that
// is already running finishes on its own; its value is dropped.
func (f *Future[T]) Cancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
	f.cancel()
}
