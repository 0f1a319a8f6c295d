// Package view materializes the filtered channel list one page at a time.
package view

import "github.com/glefebvre/zapper/internal/models"

// DefaultPageSize is the number of rows materialized per page.
const DefaultPageSize = 50

// State is the lifecycle of a Window between two resets.
type State int

const (
	// StateEmpty: reset, nothing materialized yet
	StateEmpty State = iota
	// StatePartial: some rows materialized, more remain
	StatePartial
	// StateComplete: every filtered row is materialized
	StateComplete
	// StateNoResults: the filtered set is empty
	StateNoResults
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	case StateNoResults:
		return "no_results"
	default:
		return "unknown"
	}
}

// Page is one batch of rows to append.
type Page struct {
	Offset int
	Items  []models.Channel
}

// Window is a cursor over the filtered set tracking how many entries are
// materialized. Shown never exceeds Total and only grows between resets.
type Window struct {
	items    []models.Channel
	shown    int
	pageSize int
	loaded   bool
}

// NewWindow creates a window; non-positive page sizes use DefaultPageSize.
func NewWindow(pageSize int) *Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Window{pageSize: pageSize}
}

// Reset replaces the filtered set and rewinds to nothing materialized.
func (w *Window) Reset(items []models.Channel) {
	w.items = items
	w.shown = 0
	w.loaded = true
}

// Next returns the page starting at Shown and advances past it. It reports
// false when nothing remains.
func (w *Window) Next() (Page, bool) {
	if w.shown >= len(w.items) {
		return Page{}, false
	}
	end := min(w.shown+w.pageSize, len(w.items))
	page := Page{Offset: w.shown, Items: w.items[w.shown:end]}
	w.shown = end
	return page, true
}

// State reports where the window is in its lifecycle.
func (w *Window) State() State {
	switch {
	case w.loaded && len(w.items) == 0:
		return StateNoResults
	case w.shown == 0:
		return StateEmpty
	case w.shown < len(w.items):
		return StatePartial
	default:
		return StateComplete
	}
}

// Shown is the number of materialized entries.
func (w *Window) Shown() int { return w.shown }

// Total is the size of the filtered set.
func (w *Window) Total() int { return len(w.items) }

// Remaining is the number of entries not yet materialized.
func (w *Window) Remaining() int { return len(w.items) - w.shown }

// HasMore reports whether another page is available.
func (w *Window) HasMore() bool { return w.shown < len(w.items) }

// PageSize returns the configured page size.
func (w *Window) PageSize() int { return w.pageSize }

// Visible returns the materialized entries.
func (w *Window) Visible() []models.Channel {
	return w.items[:w.shown]
}
