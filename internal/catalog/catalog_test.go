package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glefebvre/zapper/internal/models"
)

func TestSetAdd(t *testing.T) {
	s := NewSet()
	s.Add("News")
	s.Add("Sports")
	s.Add("News")

	assert.Equal(t, 2, s.GroupCount())
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Contains(models.CategoryAll))

	s.AddAll()
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.GroupCount())
	assert.True(t, s.Contains(models.CategoryAll))
	assert.True(t, s.Contains("News"))
	assert.False(t, s.Contains("news"))
}

func TestSetAddAllGroupCollapses(t *testing.T) {
	s := NewSet()
	s.Add(models.CategoryAll)

	assert.Equal(t, 0, s.GroupCount())
	assert.True(t, s.Contains(models.CategoryAll))
}

func TestBuildOrdering(t *testing.T) {
	s := NewSet()
	for _, g := range []string{"Sports", "News", "Kids", "uncategorized", "Movies"} {
		s.Add(g)
	}
	s.AddAll()

	idx := Build(s)
	assert.Equal(t, []string{"all", "Kids", "Movies", "News", "Sports", "uncategorized"}, idx.Entries())
	assert.Equal(t, []string{"Kids", "Movies", "News", "Sports", "uncategorized"}, idx.Groups())
	assert.Equal(t, 6, idx.Len())
}

func TestBuildEmpty(t *testing.T) {
	tests := []struct {
		name string
		set  *Set
	}{
		{"nil set", nil},
		{"empty set", NewSet()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Build(tt.set)
			assert.Equal(t, []string{"all"}, idx.Entries())
			assert.Empty(t, idx.Groups())
			assert.Equal(t, 1, idx.Len())
		})
	}

	var zero Index
	assert.Equal(t, []string{"all"}, zero.Entries())
	assert.Equal(t, 1, zero.Len())
}

func TestIndexContains(t *testing.T) {
	s := NewSet()
	s.Add("News")
	s.Add("Sports")
	idx := Build(s)

	assert.True(t, idx.Contains("all"))
	assert.True(t, idx.Contains("News"))
	assert.False(t, idx.Contains("Music"))
}

func TestIndexEntriesIsCopy(t *testing.T) {
	s := NewSet()
	s.Add("News")
	idx := Build(s)

	entries := idx.Entries()
	entries[0] = "mutated"
	assert.Equal(t, "all", idx.Entries()[0])
}

func TestIndexNextPrev(t *testing.T) {
	s := NewSet()
	s.Add("B")
	s.Add("A")
	idx := Build(s)

	assert.Equal(t, "A", idx.Next("all"))
	assert.Equal(t, "B", idx.Next("A"))
	assert.Equal(t, "all", idx.Next("B"))
	assert.Equal(t, "B", idx.Prev("all"))
	assert.Equal(t, "all", idx.Prev("A"))
	assert.Equal(t, "all", idx.Next("missing"))
}
