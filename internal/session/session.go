// Package session owns the single active playlist: its channel list,
// category index, filter state, materialized view and generation token.
//
// A Session is not safe for concurrent use. Every method must run on the
// session's scheduler; hosts running a scheduler.Loop reach it through
// Loop.Call.
package session

import (
	"fmt"
	"time"

	"github.com/glefebvre/zapper/internal/catalog"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/filter"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
	"github.com/glefebvre/zapper/internal/parser"
	"github.com/glefebvre/zapper/internal/scheduler"
	"github.com/glefebvre/zapper/internal/view"
)

// Player is the playback collaborator.
type Player interface {
	Play(req models.PlayRequest) error
}

// GuideLoader is the guide-loading collaborator. Discovered must return
// quickly; loading happens elsewhere.
type GuideLoader interface {
	Discovered(url string)
}

// Options configures a session.
type Options struct {
	ChunkSize        int
	StreamPrefixes   []string
	PageSize         int
	ScrollThreshold  float64
	DebounceInterval time.Duration
	// GuideURL is the already configured guide source, if any.
	GuideURL string

	Sink   Sink
	Player Player
	Guide  GuideLoader
	Logger *logger.Logger

	// AfterFunc replaces the debounce timer source.
	AfterFunc scheduler.AfterFunc
}

// Status is a snapshot of the observable session state.
type Status struct {
	Generation    uint64              `json:"generation"`
	Source        string              `json:"source,omitempty"`
	Parsing       bool                `json:"parsing"`
	Progress      int                 `json:"progress"`
	ChannelCount  int                 `json:"channel_count"`
	CategoryCount int                 `json:"category_count"`
	FilteredCount int                 `json:"filtered_count"`
	Shown         int                 `json:"shown"`
	ViewState     string              `json:"view_state"`
	Searching     bool                `json:"searching"`
	Filter        filter.State        `json:"filter"`
	GuideURL      string              `json:"guide_url,omitempty"`
	NowPlaying    *models.PlayRequest `json:"now_playing,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	LastLoad      *Completion         `json:"last_load,omitempty"`
}

// Line renders the status line shown next to the list.
func (s Status) Line() string {
	switch {
	case s.Parsing:
		return fmt.Sprintf("Processing... %d%%", s.Progress)
	case s.Searching:
		return "Searching..."
	default:
		return fmt.Sprintf("%d of %d channels", s.FilteredCount, s.ChannelCount)
	}
}

// Session is the controller tying parser, filter and view together.
type Session struct {
	sched     scheduler.Scheduler
	opts      Options
	log       *logger.Logger
	sink      Sink
	debouncer *scheduler.Debouncer
	buffer    *view.Buffer
	renderer  *view.Renderer

	generation uint64
	source     string
	parsing    bool
	progress   int

	channels   []models.Channel
	categories catalog.Index
	state      filter.State
	filtered   []models.Channel

	guideURL   string
	nowPlaying *models.PlayRequest
	lastErr    error
	lastLoad   *Completion
}

// New creates an idle session posting its work onto sched.
func New(sched scheduler.Scheduler, opts Options) *Session {
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.AppLogger()
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = 400 * time.Millisecond
	}

	s := &Session{
		sched:      sched,
		opts:       opts,
		log:        opts.Logger,
		sink:       opts.Sink,
		buffer:     view.NewBuffer(),
		categories: catalog.Build(nil),
		state:      filter.Default(),
		channels:   []models.Channel{},
		filtered:   []models.Channel{},
		guideURL:   opts.GuideURL,
	}
	if opts.AfterFunc != nil {
		s.debouncer = scheduler.NewDebouncerWithClock(sched, opts.DebounceInterval, opts.AfterFunc)
	} else {
		s.debouncer = scheduler.NewDebouncer(sched, opts.DebounceInterval)
	}
	s.renderer = view.NewRenderer(s.buffer, s.buffer.NewRow, view.RendererOptions{
		PageSize:        opts.PageSize,
		ScrollThreshold: opts.ScrollThreshold,
		OnActivate:      s.play,
	})
	return s
}

// Load starts parsing doc as the new playlist and returns its generation.
// Any parse still in flight is superseded. The current channel list stays
// in place until the new parse completes.
func (s *Session) Load(source, doc string) (uint64, error) {
	s.generation++
	gen := s.generation
	s.source = source
	s.parsing = true
	s.progress = 0

	s.sink.Started(gen, source)

	_, err := parser.Start(s.sched, doc, gen, parser.Options{
		ChunkSize:      s.opts.ChunkSize,
		StreamPrefixes: s.opts.StreamPrefixes,
		Logger:         s.log,
	}, parser.Callbacks{
		IsCurrent:  s.isCurrent,
		OnProgress: s.onProgress,
		OnGuideURL: s.onGuideURL,
		OnComplete: s.onComplete,
		OnAbandon:  s.sink.Superseded,
	})
	if err != nil {
		s.parsing = false
		return gen, apperrors.Wrap(err, apperrors.CodeParse, "failed to start parse")
	}
	return gen, nil
}

// Fail reports a retrieval failure for source. Session state is left as is.
func (s *Session) Fail(source string, err error) {
	s.lastErr = err
	s.log.WithFields(map[string]interface{}{
		"source": source,
	}).Warn(fmt.Sprintf("playlist retrieval failed: %v", err))
	s.sink.Notify(err)
}

func (s *Session) isCurrent(gen uint64) bool {
	return gen == s.generation
}

func (s *Session) onProgress(gen uint64, percent int) {
	s.progress = percent
	s.sink.Progress(gen, percent)
}

func (s *Session) onGuideURL(url string) {
	if s.guideURL != "" {
		s.log.WithFields(map[string]interface{}{
			"configured": s.guideURL,
			"discovered": url,
		}).Debug("ignoring playlist guide url, one is already configured")
		return
	}
	s.guideURL = url
	if s.opts.Guide != nil {
		s.opts.Guide.Discovered(url)
	}
}

func (s *Session) onComplete(r parser.Result) {
	s.parsing = false
	s.progress = 100
	s.channels = r.Channels
	s.categories = catalog.Build(r.Categories)

	c := Completion{
		Generation:    r.Generation,
		Source:        s.source,
		ChannelCount:  r.ChannelCount(),
		CategoryCount: r.CategoryCount(),
		Stats:         r.Stats,
	}
	s.lastLoad = &c
	s.sink.Completed(c)

	s.applyFilter()
}

// SetFilter replaces the filter state and recomputes the filtered set.
func (s *Session) SetFilter(state filter.State) {
	s.debouncer.Cancel()
	s.state = filter.NewState(state.Category, state.SearchTerm)
	s.applyFilter()
}

// SetCategory changes the category and recomputes immediately. A pending
// debounced search stays pending.
func (s *Session) SetCategory(category string) {
	s.state = s.state.WithCategory(category)
	s.applyFilter()
}

// SetSearch changes the search term and recomputes immediately.
func (s *Session) SetSearch(raw string) {
	s.SetFilter(s.state.WithSearch(raw))
}

// SearchInput records a keystroke. The recomputation runs once the input
// has been quiet for the debounce interval.
func (s *Session) SearchInput(raw string) {
	s.debouncer.Trigger(func() {
		s.state = s.state.WithSearch(raw)
		s.applyFilter()
	})
}

func (s *Session) applyFilter() {
	s.filtered = filter.Apply(s.channels, s.state)
	s.renderer.Show(s.filtered)
	s.sink.FilterCount(len(s.filtered), len(s.channels))
}

// LoadMore renders the next page.
func (s *Session) LoadMore() bool {
	return s.renderer.LoadMore()
}

// Scroll reports the viewport position and loads a page when near the end.
func (s *Session) Scroll(pos view.ScrollPosition) bool {
	return s.renderer.OnScroll(pos)
}

// Activate selects the materialized row of channel id and hands it to the
// player.
func (s *Session) Activate(id int) (models.Channel, error) {
	s.lastErr = nil
	ch, ok := s.renderer.ActivateChannel(id)
	if !ok {
		return models.Channel{}, apperrors.NotFoundError("channel", fmt.Sprintf("%d", id))
	}
	return ch, s.lastErr
}

// ActivateRow activates the row at index in the materialized list.
func (s *Session) ActivateRow(index int) error {
	row, ok := s.buffer.Row(index)
	if !ok {
		return apperrors.NotFoundError("row", fmt.Sprintf("%d", index))
	}
	s.lastErr = nil
	row.Activate()
	return s.lastErr
}

func (s *Session) play(ch models.Channel) {
	req := ch.PlayRequest()
	s.nowPlaying = &req

	if s.opts.Player == nil {
		return
	}
	if err := s.opts.Player.Play(req); err != nil {
		s.lastErr = err
		s.log.WithFields(map[string]interface{}{
			"channel_id": ch.ID,
			"name":       ch.Name,
		}).Warn(fmt.Sprintf("playback failed: %v", err))
		s.sink.Notify(err)
	}
}

// SetGuideURL records the configured guide source.
func (s *Session) SetGuideURL(url string) {
	s.guideURL = url
}

// Generation is the id of the most recent Load.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Categories returns the display-ordered category index.
func (s *Session) Categories() []string {
	return s.categories.Entries()
}

// CategoryIndex returns the category index itself.
func (s *Session) CategoryIndex() catalog.Index {
	return s.categories
}

// Filter returns the active filter state.
func (s *Session) Filter() filter.State {
	return s.state
}

// Channels returns the full channel list of the last completed parse.
func (s *Session) Channels() []models.Channel {
	return s.channels
}

// Filtered returns the current filtered set.
func (s *Session) Filtered() []models.Channel {
	return s.filtered
}

// View returns a copy of the materialized rows.
func (s *Session) View() view.Snapshot {
	return s.buffer.Snapshot()
}

// Renderer exposes the list renderer.
func (s *Session) Renderer() *view.Renderer {
	return s.renderer
}

// Status returns the observable state.
func (s *Session) Status() Status {
	st := Status{
		Generation:    s.generation,
		Source:        s.source,
		Parsing:       s.parsing,
		Progress:      s.progress,
		ChannelCount:  len(s.channels),
		CategoryCount: len(s.categories.Groups()),
		FilteredCount: len(s.filtered),
		Shown:         s.renderer.Shown(),
		ViewState:     s.renderer.State().String(),
		Searching:     s.debouncer.Pending(),
		Filter:        s.state,
		GuideURL:      s.guideURL,
		NowPlaying:    s.nowPlaying,
		LastLoad:      s.lastLoad,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
