package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glefebvre/zapper/internal/logger"
)

// Loop is a single-goroutine event loop. Tasks posted to it run one at a
// time, in posting order, on the goroutine that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	started bool
	log     *logger.Logger
}

// NewLoop creates a loop that is not yet running.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  logger.AppLogger(),
	}
}

// Post enqueues fn. It is safe to call from any goroutine, including from a
// task running on the loop itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled. Tasks still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return fmt.Errorf("scheduler loop already started")
	}
	l.started = true
	l.mu.Unlock()

	defer close(l.done)
	l.log.Debug("scheduler loop started")

	for {
		if fn, ok := l.next(); ok {
			l.runTask(fn)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.log.Debug("scheduler loop stopped")
			return ctx.Err()
		case <-l.wake:
		}
	}

	l.log.Debug("scheduler loop stopped")
	return ctx.Err()
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("scheduler task panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

// Call runs fn on the loop and waits for it to finish.
// It must not be called from a task already running on the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts fn onto the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
