package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glefebvre/zapper/internal/session"
)

// changedMsg tells the model to re-read the session.
type changedMsg struct{}

type notifyMsg struct {
	err error
}

// Sink forwards session signals to a running program. Signals arriving
// before Attach are dropped.
type Sink struct {
	session.NopSink

	mu   sync.Mutex
	send func(tea.Msg)
}

// NewSink creates a detached sink.
func NewSink() *Sink {
	return &Sink{}
}

// Attach connects the sink to a program, usually with p.Send.
func (s *Sink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

func (s *Sink) post(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send == nil {
		return
	}
	// the program may itself be blocked on the scheduler loop
	go send(msg)
}

func (s *Sink) Started(uint64, string) { s.post(changedMsg{}) }
func (s *Sink) Progress(uint64, int) { s.post(changedMsg{}) }
func (s *Sink) Completed(session.Completion) { s.post(changedMsg{}) }
func (s *Sink) FilterCount(int, int) { s.post(changedMsg{}) }
func (s *Sink) Notify(err error) { s.post(notifyMsg{err: err}) }
