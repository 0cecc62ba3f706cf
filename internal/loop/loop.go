// Package loop provides the single serialized executor that owns all helper
// process wrappers. Process lifecycle and output events are posted onto the
// loop, so wrapper state is only ever touched from one goroutine.
package loop

import (
	"context"
	"sync"
)

type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	quit   chan struct{}
	closed bool
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// Post queues fn for execution on the loop. Safe from any goroutine.
// Tasks posted after Quit are discarded.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs queued tasks on the calling goroutine until the queue is empty,
// including tasks posted by the tasks themselves. It returns the number of
// tasks executed.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
		n++
	}
}

// Pending reports the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run processes tasks until Quit is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-l.wake:
		case <-l.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Quit stops Run. Tasks still queued are dropped.
func (l *Loop) Quit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.quit)
}

// Done is closed once Quit has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.quit
}
