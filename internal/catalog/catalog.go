// Package catalog accumulates the distinct channel groups seen during a parse
// and orders them for display.
package catalog

import (
	"slices"

	"github.com/glefebvre/zapper/internal/models"
)

// Set is the collection of distinct groups observed in a playlist.
// The "all" pseudo-category is tracked separately from real groups.
type Set struct {
	groups  map[string]struct{}
	withAll bool
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{groups: make(map[string]struct{})}
}

// Add records a group. Adding "all" marks the pseudo-category as present
// rather than storing it as a group.
func (s *Set) Add(group string) {
	if group == models.CategoryAll {
		s.withAll = true
		return
	}
	s.groups[group] = struct{}{}
}

// AddAll marks the "all" pseudo-category as present.
func (s *Set) AddAll() {
	s.withAll = true
}

// Contains reports whether category is a member, "all" included once added.
func (s *Set) Contains(category string) bool {
	if category == models.CategoryAll {
		return s.withAll
	}
	_, ok := s.groups[category]
	return ok
}

// GroupCount is the number of real groups, excluding "all".
func (s *Set) GroupCount() int {
	return len(s.groups)
}

// Len is the number of members, "all" included once added.
func (s *Set) Len() int {
	if s.withAll {
		return len(s.groups) + 1
	}
	return len(s.groups)
}

// Index is the display ordering of a Set: "all" first, then every group in
// lexicographic order.
type Index struct {
	entries []string
}

// Build derives the display index from set. A nil set yields an index
// holding only "all".
func Build(set *Set) Index {
	entries := []string{models.CategoryAll}
	if set == nil {
		return Index{entries: entries}
	}

	groups := make([]string, 0, len(set.groups))
	for g := range set.groups {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	return Index{entries: append(entries, groups...)}
}

// Entries returns a copy of the ordered categories.
func (i Index) Entries() []string {
	if len(i.entries) == 0 {
		return []string{models.CategoryAll}
	}
	return slices.Clone(i.entries)
}

// Groups returns the real groups in display order, without "all".
func (i Index) Groups() []string {
	if len(i.entries) <= 1 {
		return []string{}
	}
	return slices.Clone(i.entries[1:])
}

// Len is the number of entries, "all" included.
func (i Index) Len() int {
	if len(i.entries) == 0 {
		return 1
	}
	return len(i.entries)
}

// Contains reports whether category can be selected.
func (i Index) Contains(category string) bool {
	if category == models.CategoryAll {
		return true
	}
	_, found := slices.BinarySearch(i.Groups(), category)
	return found
}

// Next returns the category after current, wrapping around. Unknown
// categories move to "all".
func (i Index) Next(current string) string {
	return i.step(current, 1)
}

// Prev returns the category before current, wrapping around.
func (i Index) Prev(current string) string {
	return i.step(current, -1)
}

func (i Index) step(current string, delta int) string {
	entries := i.Entries()
	pos := slices.Index(entries, current)
	if pos < 0 {
		return models.CategoryAll
	}
	n := len(entries)
	return entries[((pos+delta)%n+n)%n]
}
