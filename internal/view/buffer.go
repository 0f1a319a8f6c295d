package view

import (
	"sync"

	"github.com/glefebvre/zapper/internal/models"
)

// Row is the in-memory row produced by a Buffer.
type Row struct {
	Channel  models.Channel
	activate func()
	mu       *sync.RWMutex
	active   bool
}

// SetActive implements RowHandle.
func (r *Row) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
}

// IsActive reports whether the row is the selected one.
func (r *Row) IsActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Activate runs the row's bound activation.
func (r *Row) Activate() {
	if r.activate != nil {
		r.activate()
	}
}

// Buffer is a Surface that keeps rows in memory. Hosts without a widget
// toolkit (CLI, HTTP, terminal UI) read it through Snapshot.
type Buffer struct {
	mu           sync.RWMutex
	rows         []*Row
	continuation int
	hasMore      bool
	noResults    bool
	appends      int
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewRow is the RowFunc for this buffer.
func (b *Buffer) NewRow(ch models.Channel, activate func()) RowHandle {
	return &Row{Channel: ch, activate: activate, mu: &b.mu}
}

// Clear implements Surface.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = nil
	b.hasMore = false
	b.continuation = 0
	b.noResults = false
}

// Append implements Surface.
func (b *Buffer) Append(rows []RowHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range rows {
		if row, ok := h.(*Row); ok {
			b.rows = append(b.rows, row)
		}
	}
	b.appends++
}

// ShowContinuation implements Surface.
func (b *Buffer) ShowContinuation(remaining int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasMore = true
	b.continuation = remaining
}

// HideContinuation implements Surface.
func (b *Buffer) HideContinuation() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasMore = false
	b.continuation = 0
}

// ShowNoResults implements Surface.
func (b *Buffer) ShowNoResults() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noResults = true
}

// Row returns the materialized row at index.
func (b *Buffer) Row(index int) (*Row, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if index < 0 || index >= len(b.rows) {
		return nil, false
	}
	return b.rows[index], true
}

// Len is the number of materialized rows.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}

// RowView is a copy of a row for display.
type RowView struct {
	models.Channel
	Active bool `json:"active"`
}

// Snapshot is a point-in-time copy of the buffer.
type Snapshot struct {
	Rows             []RowView `json:"rows"`
	HasMore          bool      `json:"has_more"`
	Remaining        int       `json:"remaining"`
	ContinuationText string    `json:"continuation_text,omitempty"`
	NoResults        bool      `json:"no_results"`
	NoResultsText    string    `json:"no_results_text,omitempty"`
}

// Snapshot copies the buffer contents.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{
		Rows:      make([]RowView, len(b.rows)),
		HasMore:   b.hasMore,
		Remaining: b.continuation,
		NoResults: b.noResults,
	}
	for i, r := range b.rows {
		s.Rows[i] = RowView{Channel: r.Channel, Active: r.active}
	}
	if b.hasMore {
		s.ContinuationText = ContinuationText(b.continuation)
	}
	if b.noResults {
		s.NoResultsText = NoResultsText
	}
	return s
}

// Appends is the number of Append calls since creation.
func (b *Buffer) Appends() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.appends
}
