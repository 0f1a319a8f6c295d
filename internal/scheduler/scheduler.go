// Package scheduler provides the cooperative, single-threaded execution model
// the session runs on: a task queue drained by one goroutine, a manual queue
// for deterministic tests, and a cancel-and-reschedule debouncer.
package scheduler

import "errors"

// ErrStopped is returned by Call when the loop is no longer running.
var ErrStopped = errors.New("scheduler loop stopped")

// Scheduler accepts tasks to run on a later turn.
// Post never runs fn synchronously; it is the "yield to next turn" primitive.
type Scheduler interface {
	Post(fn func())
}

// Func adapts an ordinary function to the Scheduler interface.
type Func func(fn func())

// Post calls f(fn).
func (f Func) Post(fn func()) {
	f(fn)
}
