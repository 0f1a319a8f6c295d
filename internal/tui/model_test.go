package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/playback"
	"github.com/glefebvre/zapper/internal/scheduler"
	"github.com/glefebvre/zapper/internal/session"
	testutil "github.com/glefebvre/zapper/internal/testing"
	"github.com/glefebvre/zapper/internal/view"
)

// manualRunner runs calls inline and drains everything they scheduled.
type manualRunner struct {
	sched *scheduler.Manual
}

func (r manualRunner) Call(_ context.Context, fn func()) error {
	fn()
	r.sched.RunPending()
	return nil
}

// stoppedRunner behaves like a loop that has already exited.
type stoppedRunner struct{}

func (stoppedRunner) Call(context.Context, func()) error {
	return scheduler.ErrStopped
}

type stubLoader struct {
	doc string
	err error
}

func (l stubLoader) Load(context.Context, string) (string, error) {
	return l.doc, l.err
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }

func immediate(_ time.Duration, f func()) scheduler.Timer {
	f()
	return stoppedTimer{}
}

var sample = testutil.Playlist(
	testutil.Entry{Name: "News One", Group: "News"},
	testutil.Entry{Name: "Sports One", Group: "Sports"},
	testutil.Entry{Name: "News Two", Group: "News"},
	testutil.Entry{Name: "Movies One", Group: "Movies"},
	testutil.Entry{Name: "News Three", Group: "News"},
)

func newTestModel(t *testing.T, loader DocumentLoader, prefetch int) (Model, *playback.Recorder) {
	t.Helper()
	sched := scheduler.NewManual()
	player := &playback.Recorder{}
	sess := session.New(sched, session.Options{
		PageSize:  2,
		Player:    player,
		Logger:    logger.Discard(),
		AfterFunc: immediate,
	})
	m := NewModel(context.Background(), manualRunner{sched: sched}, sess, loader, Options{
		Source:       "http://iptv/list.m3u",
		PrefetchRows: prefetch,
	})
	return m, player
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	return update(t, m, m.loadCmd()())
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestLoadAndRender(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	require.NoError(t, m.err)
	assert.Len(t, m.snapshot.Rows, 2)
	assert.Equal(t, "all", m.status.Filter.Category)

	out := m.View()
	assert.Contains(t, out, "News One")
	assert.Contains(t, out, "Sports One")
	assert.NotContains(t, out, "News Two")
	assert.Contains(t, out, "Load more (3 remaining)")
	assert.Contains(t, out, "5 of 5 channels")
	assert.Contains(t, out, "Movies")
}

func TestLoadFailure(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{err: errors.New("connection refused")}, 0)
	m = loaded(t, m)

	require.Error(t, m.err)
	assert.Equal(t, "connection refused", m.status.LastError)
	assert.Contains(t, m.View(), "connection refused")
	assert.Empty(t, m.snapshot.Rows)
}

func TestLoadFailureWithStoppedLoop(t *testing.T) {
	sess := session.New(scheduler.NewManual(), session.Options{Logger: logger.Discard()})
	m := NewModel(context.Background(), stoppedRunner{}, sess, stubLoader{err: errors.New("connection refused")}, Options{
		Source: "http://iptv/list.m3u",
	})

	msg, ok := m.loadCmd()().(loadedMsg)
	require.True(t, ok)
	require.Error(t, msg.err)
	assert.Contains(t, msg.err.Error(), "connection refused")
	assert.ErrorIs(t, msg.err, scheduler.ErrStopped)
}

func TestCategoryCycling(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "Movies", m.status.Filter.Category)
	require.Len(t, m.snapshot.Rows, 1)
	assert.Equal(t, "Movies One", m.snapshot.Rows[0].Name)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "News", m.status.Filter.Category)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "all", m.status.Filter.Category)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "Sports", m.status.Filter.Category, "wraps around")
}

func TestSearchInput(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = typeText(t, m, "TWO")
	require.Len(t, m.snapshot.Rows, 1)
	assert.Equal(t, "News Two", m.snapshot.Rows[0].Name)
	assert.Equal(t, "two", m.status.Filter.SearchTerm)
	assert.Contains(t, m.View(), "1 of 5 channels")
}

func TestSearchNoResults(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = typeText(t, m, "zzz")
	assert.True(t, m.snapshot.NoResults)
	out := m.View()
	assert.Contains(t, out, view.NoResultsText)
	assert.Contains(t, out, view.NoResultsHint)
}

func TestCursorLoadsNextPage(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	assert.Len(t, m.snapshot.Rows, 4, "cursor on the last row requests a page")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Len(t, m.snapshot.Rows, 4)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Len(t, m.snapshot.Rows, 5)
	assert.False(t, m.snapshot.HasMore)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 4, m.cursor, "cursor stops at the last row")
}

func TestPrefetchRows(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 1)
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Len(t, m.snapshot.Rows, 4, "cursor within prefetch distance of the end")
}

func TestEnterActivatesRow(t *testing.T) {
	m, player := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	played := player.Played()
	require.Len(t, played, 1)
	assert.Equal(t, "Sports One", played[0].Name)
	assert.True(t, m.snapshot.Rows[1].Active)
	assert.False(t, m.snapshot.Rows[0].Active)
	assert.Contains(t, m.View(), "playing Sports One")
}

func TestEnterReportsPlaybackError(t *testing.T) {
	m, player := newTestModel(t, stubLoader{doc: sample}, 0)
	player.Err = errors.New("no player")
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "no player")
}

func TestReload(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m = update(t, next.(Model), cmd())
	assert.Equal(t, uint64(2), m.status.Generation)
	assert.Equal(t, 5, m.status.ChannelCount)

	m.source = ""
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestKeyBindings(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 1, m.cursor)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, 0, m.cursor)
	assert.Empty(t, m.input.Value(), "bindings never reach the search input")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestHelpFooter(t *testing.T) {
	m, _ := newTestModel(t, stubLoader{doc: sample}, 0)
	m = loaded(t, m)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	out := m.View()
	for _, b := range m.keys.ShortHelp() {
		assert.Contains(t, out, b.Help().Desc)
	}
	assert.Len(t, m.keys.FullHelp(), 3)
}

func TestSink(t *testing.T) {
	sink := NewSink()
	assert.NotPanics(t, func() { sink.Progress(1, 10) })

	msgs := make(chan tea.Msg, 4)
	sink.Attach(func(msg tea.Msg) { msgs <- msg })

	sink.Progress(1, 50)
	assert.Equal(t, changedMsg{}, <-msgs)

	sink.Notify(errors.New("boom"))
	msg := <-msgs
	require.IsType(t, notifyMsg{}, msg)
	assert.EqualError(t, msg.(notifyMsg).err, "boom")
}
