package scheduler

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer delays a task until a quiet period has passed. Each Trigger
// replaces the pending task and restarts the quiet period, so at most one
// task is ever pending. The task runs on the scheduler, never on the timer
// goroutine.
type Debouncer struct {
	mu        sync.Mutex
	sched     Scheduler
	delay     time.Duration
	afterFunc AfterFunc
	timer     Timer
	seq       uint64
	pending   bool
}

// NewDebouncer creates a debouncer posting onto sched after delay of inactivity.
func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	return NewDebouncerWithClock(sched, delay, stdAfterFunc)
}

// NewDebouncerWithClock is NewDebouncer with an injectable timer source.
func NewDebouncerWithClock(sched Scheduler, delay time.Duration, afterFunc AfterFunc) *Debouncer {
	return &Debouncer{
		sched:     sched,
		delay:     delay,
		afterFunc: afterFunc,
	}
}

// Trigger schedules fn, cancelling whatever was pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = true

	d.timer = d.afterFunc(d.delay, func() {
		d.sched.Post(func() {
			// a Trigger or Cancel after the timer fired still wins
			if !d.claim(seq) {
				return
			}
			fn()
		})
	})
}

func (d *Debouncer) claim(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq || !d.pending {
		return false
	}
	d.pending = false
	d.timer = nil
	return true
}

// Cancel drops the pending task, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	was := d.pending
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
	return was
}

// Pending reports whether a task is waiting for its quiet period to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
