// Package tui is a terminal front end for a playlist session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glefebvre/zapper/internal/catalog"
	"github.com/glefebvre/zapper/internal/session"
	"github.com/glefebvre/zapper/internal/view"
)

// Runner executes fn on the goroutine that owns the session.
// *scheduler.Loop satisfies it.
type Runner interface {
	Call(ctx context.Context, fn func()) error
}

// DocumentLoader retrieves a playlist document from a URL or local path.
type DocumentLoader interface {
	Load(ctx context.Context, source string) (string, error)
}

type loadedMsg struct {
	generation uint64
	err        error
}

// Options configures a Model.
type Options struct {
	Source       string
	PrefetchRows int
}

// Model is the bubbletea model of the channel browser.
type Model struct {
	ctx     context.Context
	runner  Runner
	session *session.Session
	loader  DocumentLoader
	source  string

	input        textinput.Model
	keys         keyMap
	help         help.Model
	lastInput    string
	prefetchRows int

	status     session.Status
	snapshot   view.Snapshot
	categories catalog.Index

	cursor int
	top    int
	width  int
	height int
	err    error
}

// NewModel creates the model. The session must only be touched through runner.
func NewModel(ctx context.Context, runner Runner, sess *session.Session, loader DocumentLoader, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Search channels..."
	ti.Prompt = "/ "
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	if opts.PrefetchRows < 0 {
		opts.PrefetchRows = 0
	}

	return Model{
		ctx:          ctx,
		runner:       runner,
		session:      sess,
		loader:       loader,
		source:       opts.Source,
		input:        ti,
		keys:         defaultKeyMap(),
		help:         help.New(),
		prefetchRows: opts.PrefetchRows,
		categories:   catalog.Build(nil),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.refreshCmd()}
	if m.source != "" {
		cmds = append(cmds, m.loadCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg { return changedMsg{} }
}

// loadCmd retrieves the source off the loop, then hands it to the session.
func (m Model) loadCmd() tea.Cmd {
	source, loader, runner, sess, ctx := m.source, m.loader, m.runner, m.session, m.ctx
	return func() tea.Msg {
		doc, err := loader.Load(ctx, source)
		if err != nil {
			if callErr := runner.Call(ctx, func() { sess.Fail(source, err) }); callErr != nil {
				return loadedMsg{err: errors.Join(err, callErr)}
			}
			return loadedMsg{err: err}
		}

		var gen uint64
		var loadErr error
		if err := runner.Call(ctx, func() { gen, loadErr = sess.Load(source, doc) }); err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{generation: gen, err: loadErr}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampScroll()
		return m, nil

	case changedMsg:
		m.sync()
		return m, nil

	case notifyMsg:
		m.err = msg.err
		m.sync()
		return m, nil

	case loadedMsg:
		m.err = msg.err
		m.sync()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextCategory):
			m.setCategory(m.categories.Next(m.status.Filter.Category))
			return m, nil
		case key.Matches(msg, m.keys.PrevCategory):
			m.setCategory(m.categories.Prev(m.status.Filter.Category))
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.moveCursor(-m.listHeight())
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.moveCursor(m.listHeight())
			return m, nil
		case key.Matches(msg, m.keys.Play):
			m.activate()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			if m.source == "" {
				return m, nil
			}
			m.err = nil
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.lastInput {
		m.lastInput = v
		m.call(func() { m.session.SearchInput(v) })
		m.sync()
	}
	return m, cmd
}

func (m *Model) call(fn func()) {
	if err := m.runner.Call(m.ctx, fn); err != nil {
		m.err = err
	}
}

// sync copies the session state into the model.
func (m *Model) sync() {
	m.call(func() {
		m.status = m.session.Status()
		m.snapshot = m.session.View()
		m.categories = m.session.CategoryIndex()
	})
	if m.cursor >= len(m.snapshot.Rows) {
		m.cursor = max(len(m.snapshot.Rows)-1, 0)
	}
	m.clampScroll()
}

func (m *Model) setCategory(category string) {
	m.call(func() { m.session.SetCategory(category) })
	m.cursor, m.top = 0, 0
	m.sync()
}

func (m *Model) moveCursor(delta int) {
	rows := len(m.snapshot.Rows)
	if rows == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), rows-1)

	// scroll proximity: keep rows materialized ahead of the cursor
	if m.snapshot.HasMore && m.cursor >= rows-1-m.prefetchRows {
		m.call(func() { m.session.LoadMore() })
		m.sync()
	}
	m.clampScroll()
}

func (m *Model) activate() {
	if len(m.snapshot.Rows) == 0 {
		return
	}
	index := m.cursor
	var err error
	m.call(func() { err = m.session.ActivateRow(index) })
	m.err = err
	m.sync()
}

func (m Model) listHeight() int {
	// title, categories, input, blank, continuation, status, error, help
	h := m.height - 8
	if h < 1 {
		return 10
	}
	return h
}

func (m *Model) clampScroll() {
	h := m.listHeight()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+h {
		m.top = m.cursor - h + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("zapper"))
	if m.status.Source != "" {
		b.WriteString(dimStyle.Render("  " + m.status.Source))
	}
	b.WriteString("\n")
	b.WriteString(m.categoryBar())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.snapshot.NoResults {
		b.WriteString(dimStyle.Render(view.NoResultsText))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(view.NoResultsHint))
		b.WriteString("\n")
	} else {
		end := min(m.top+m.listHeight(), len(m.snapshot.Rows))
		for i := m.top; i < end; i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
		if m.snapshot.HasMore {
			b.WriteString(dimStyle.Render(m.snapshot.ContinuationText))
			b.WriteString("\n")
		}
	}

	b.WriteString(statusStyle.Render(m.statusLine()))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) categoryBar() string {
	entries := m.categories.Entries()
	parts := make([]string, 0, len(entries))
	for _, c := range entries {
		if c == m.status.Filter.Category {
			parts = append(parts, currentCategoryStyle.Render(c))
			continue
		}
		parts = append(parts, categoryStyle.Render(c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderRow(i int) string {
	row := m.snapshot.Rows[i]

	marker := "  "
	if row.Active {
		marker = playingStyle.Render("▶ ")
	}
	line := fmt.Sprintf("%s%s %s", marker, row.Name, groupStyle.Render("["+row.Group+"]"))
	if i == m.cursor {
		return cursorStyle.Render("> ") + line
	}
	return "  " + line
}

func (m Model) statusLine() string {
	line := m.status.Line()
	if m.status.NowPlaying != nil {
		line += " | playing " + m.status.NowPlaying.Name
	}
	return line
}
