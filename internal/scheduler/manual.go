package scheduler

import "sync"

// Manual is a Scheduler whose tasks run only when the caller steps it.
// Tests use it to observe the state between two turns.
type Manual struct {
	mu    sync.Mutex
	queue []func()
	ran   int
}

// NewManual returns an empty manual queue.
func NewManual() *Manual {
	return &Manual{}
}

// Post enqueues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// Step runs the oldest queued task and reports whether one ran.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.queue[0]
	m.queue = m.queue[1:]
	m.ran++
	m.mu.Unlock()

	fn()
	return true
}

// RunPending steps until the queue is empty, including tasks posted while
// draining, and returns how many tasks ran.
func (m *Manual) RunPending() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}

// Len returns the number of queued tasks.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Ran returns the total number of tasks run so far.
func (m *Manual) Ran() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ran
}
