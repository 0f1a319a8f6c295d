package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glefebvre/zapper/internal/models"
)

func channel(id int, name, group string) models.Channel {
	return models.Channel{ID: id, Name: name, Group: group, StreamURL: fmt.Sprintf("http://x/%d", id)}
}

func sampleChannels() []models.Channel {
	return []models.Channel{
		channel(0, "BBC One", "News"),
		channel(1, "CNN International", "News"),
		channel(2, "Eurosport", "Sports"),
		channel(3, "Cartoon Network", "Kids"),
		channel(4, "BBC Sport", "Sports"),
		channel(5, "Local TV", models.UncategorizedGroup),
	}
}

func ids(channels []models.Channel) []int {
	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = ch.ID
	}
	return out
}

func TestNewState(t *testing.T) {
	tests := []struct {
		name     string
		category string
		search   string
		want     State
	}{
		{"defaults", "", "", State{Category: "all"}},
		{"trims and lowers search", "News", "  BBC  ", State{Category: "News", SearchTerm: "bbc"}},
		{"keeps category case", "news", "", State{Category: "news"}},
		{"empty category", "", "x", State{Category: "all", SearchTerm: "x"}},
		{"keeps category whitespace", "News ", "", State{Category: "News "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewState(tt.category, tt.search))
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  []int
	}{
		{"all and empty search", Default(), []int{0, 1, 2, 3, 4, 5}},
		{"category only", NewState("Sports", ""), []int{2, 4}},
		{"category is case sensitive", NewState("sports", ""), []int{}},
		{"search by name", NewState("all", "bbc"), []int{0, 4}},
		{"search by group", NewState("all", "news"), []int{0, 1}},
		{"search is case insensitive", NewState("all", "CARTOON"), []int{3}},
		{"category and search", NewState("Sports", "bbc"), []int{4}},
		{"search matches group of other category", NewState("News", "sport"), []int{}},
		{"no match", NewState("all", "zzz"), []int{}},
		{"unknown category", NewState("Music", ""), []int{}},
		{"uncategorized", NewState(models.UncategorizedGroup, ""), []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sampleChannels(), tt.state)))
		})
	}
}

func TestApplySearchScenario(t *testing.T) {
	channels := []models.Channel{channel(0, "BBC", "News")}

	got := Apply(channels, NewState("all", "bbc"))
	require.Len(t, got, 1)
	assert.Equal(t, "BBC", got[0].Name)

	assert.Empty(t, Apply(channels, NewState("all", "zzz")))
}

func TestApplyAllEqualsFullList(t *testing.T) {
	channels := sampleChannels()
	assert.Equal(t, channels, Apply(channels, NewState("all", "   ")))
}

func TestApplyIdempotent(t *testing.T) {
	channels := sampleChannels()
	state := NewState("all", "b")

	first := Apply(channels, state)
	second := Apply(channels, state)
	assert.Equal(t, first, second)
}

func TestApplyPreservesOrder(t *testing.T) {
	channels := make([]models.Channel, 0, 1000)
	for i := 0; i < 1000; i++ {
		channels = append(channels, channel(i, fmt.Sprintf("Channel %d", i), fmt.Sprintf("G%d", i%3)))
	}

	got := Apply(channels, NewState("G1", "channel 1"))
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID, got[i].ID)
	}
}

func TestApplyDoesNotAlias(t *testing.T) {
	channels := sampleChannels()
	got := Apply(channels, Default())
	got[0].Name = "changed"
	assert.Equal(t, "BBC One", channels[0].Name)
}

func TestApplyEmptyInput(t *testing.T) {
	assert.Empty(t, Apply(nil, Default()))
	assert.NotNil(t, Apply(nil, Default()))
}

func TestWithHelpers(t *testing.T) {
	s := Default().WithSearch("  ESPN ").WithCategory("Sports")
	assert.Equal(t, State{Category: "Sports", SearchTerm: "espn"}, s)
	assert.False(t, s.IsZero())
	assert.True(t, s.WithCategory("").WithSearch("").IsZero())
}

func BenchmarkApply(b *testing.B) {
	channels := make([]models.Channel, 0, 100000)
	for i := 0; i < 100000; i++ {
		channels = append(channels, channel(i, fmt.Sprintf("Channel %d", i), fmt.Sprintf("Group %d", i%50)))
	}
	state := NewState("all", "channel 99")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Apply(channels, state)
	}
}
