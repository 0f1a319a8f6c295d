// Package filter narrows the parsed channel list by category and search term.
//
// Apply is a single linear scan and runs synchronously. It is intended for
// lists up to roughly 10^5 channels; beyond that it may need to be chunked
// like the parser.
package filter

import (
	"strings"

	"github.com/glefebvre/zapper/internal/models"
)

// State is the active filter: a category ("all" for none) and a search term
// that is already lower-cased and trimmed.
type State struct {
	Category   string `json:"category"`
	SearchTerm string `json:"search"`
}

// NewState normalises user input into a State. The category is kept exactly
// as given since groups are matched byte for byte; only "" means "all".
func NewState(category, search string) State {
	if category == "" {
		category = models.CategoryAll
	}
	return State{
		Category:   category,
		SearchTerm: NormalizeTerm(search),
	}
}

// Default is the state that keeps every channel.
func Default() State {
	return State{Category: models.CategoryAll}
}

// NormalizeTerm lower-cases and trims a raw search input.
func NormalizeTerm(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// WithCategory returns a copy of s with category replaced.
func (s State) WithCategory(category string) State {
	return NewState(category, s.SearchTerm)
}

// WithSearch returns a copy of s with the search term replaced.
func (s State) WithSearch(raw string) State {
	s.SearchTerm = NormalizeTerm(raw)
	return s
}

// IsZero reports whether s keeps every channel.
func (s State) IsZero() bool {
	return (s.Category == "" || s.Category == models.CategoryAll) && s.SearchTerm == ""
}

// Matches reports whether ch passes both predicates.
func (s State) Matches(ch models.Channel) bool {
	if s.Category != "" && s.Category != models.CategoryAll && ch.Group != s.Category {
		return false
	}
	if s.SearchTerm == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ch.Name), s.SearchTerm) ||
		strings.Contains(strings.ToLower(ch.Group), s.SearchTerm)
}

// Apply returns the channels matching state in their original order. The
// result never aliases the input slice.
func Apply(channels []models.Channel, state State) []models.Channel {
	out := make([]models.Channel, 0, len(channels))
	if state.IsZero() {
		return append(out, channels...)
	}
	for _, ch := range channels {
		if state.Matches(ch) {
			out = append(out, ch)
		}
	}
	return out
}
