package session

import (
	"context"
	"sync"

	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/parser"
)

// Completion is the parse-complete signal.
type Completion struct {
	Generation    uint64       `json:"generation"`
	Source        string       `json:"source"`
	ChannelCount  int          `json:"channel_count"`
	CategoryCount int          `json:"category_count"`
	Stats         parser.Stats `json:"stats"`
}

// Sink receives the observable signals of a session. Methods are called on
// the session's scheduler and must not block.
type Sink interface {
	Started(gen uint64, source string)
	Progress(gen uint64, percent int)
	Completed(c Completion)
	Superseded(gen uint64)
	FilterCount(filtered, total int)
	// Notify reports a collaborator failure the user should see.
	Notify(err error)
}

// NopSink discards every signal.
type NopSink struct{}

func (NopSink) Started(uint64, string) {}
func (NopSink) Progress(uint64, int) {}
func (NopSink) Completed(Completion) {}
func (NopSink) Superseded(uint64) {}
func (NopSink) FilterCount(int, int) {}
func (NopSink) Notify(error) {}

// LogSink writes signals to a logger.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink logging through log, or the app logger when nil.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.AppLogger()
	}
	return &LogSink{log: log}
}

func genContext(gen uint64) context.Context {
	return logger.ContextWithGeneration(context.Background(), gen)
}

func (s *LogSink) Started(gen uint64, source string) {
	s.log.WithFields(map[string]interface{}{
		"source": source,
	}).InfoContext(genContext(gen), "playlist load started")
}

func (s *LogSink) Progress(gen uint64, percent int) {
	s.log.WithFields(map[string]interface{}{
		"percent": percent,
	}).DebugContext(genContext(gen), "parse progress")
}

func (s *LogSink) Completed(c Completion) {
	s.log.WithFields(map[string]interface{}{
		"channels":   c.ChannelCount,
		"categories": c.CategoryCount,
	}).InfoContext(genContext(c.Generation), "playlist loaded")
}

func (s *LogSink) Superseded(gen uint64) {
	s.log.DebugContext(genContext(gen), "playlist load superseded")
}

func (s *LogSink) FilterCount(filtered, total int) {
	s.log.WithFields(map[string]interface{}{
		"filtered": filtered,
		"total":    total,
	}).Debug("filter applied")
}

func (s *LogSink) Notify(err error) {
	s.log.Error("collaborator failure", err)
}

// MultiSink fans signals out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Started(gen uint64, source string) {
	for _, s := range m {
		s.Started(gen, source)
	}
}

func (m MultiSink) Progress(gen uint64, percent int) {
	for _, s := range m {
		s.Progress(gen, percent)
	}
}

func (m MultiSink) Completed(c Completion) {
	for _, s := range m {
		s.Completed(c)
	}
}

func (m MultiSink) Superseded(gen uint64) {
	for _, s := range m {
		s.Superseded(gen)
	}
}

func (m MultiSink) FilterCount(filtered, total int) {
	for _, s := range m {
		s.FilterCount(filtered, total)
	}
}

func (m MultiSink) Notify(err error) {
	for _, s := range m {
		s.Notify(err)
	}
}

// FilterCountEvent is one filtered-count signal.
type FilterCountEvent struct {
	Filtered int
	Total    int
}

// Recorder keeps every signal it receives. It is safe to read from another
// goroutine.
type Recorder struct {
	mu          sync.Mutex
	started     []uint64
	progress    map[uint64][]int
	completions []Completion
	superseded  []uint64
	counts      []FilterCountEvent
	errors      []error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{progress: make(map[uint64][]int)}
}

func (r *Recorder) Started(gen uint64, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, gen)
}

func (r *Recorder) Progress(gen uint64, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[gen] = append(r.progress[gen], percent)
}

func (r *Recorder) Completed(c Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, c)
}

func (r *Recorder) Superseded(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.superseded = append(r.superseded, gen)
}

func (r *Recorder) FilterCount(filtered, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, FilterCountEvent{Filtered: filtered, Total: total})
}

func (r *Recorder) Notify(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// StartedGenerations returns the generations whose load started.
func (r *Recorder) StartedGenerations() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.started...)
}

// ProgressFor returns the progress percentages reported for gen.
func (r *Recorder) ProgressFor(gen uint64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress[gen]...)
}

// Completions returns every parse-complete signal.
func (r *Recorder) Completions() []Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Completion(nil), r.completions...)
}

// SupersededGenerations returns the abandoned generations.
func (r *Recorder) SupersededGenerations() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.superseded...)
}

// FilterCounts returns every filtered-count signal.
func (r *Recorder) FilterCounts() []FilterCountEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FilterCountEvent(nil), r.counts...)
}

// Errors returns every notified error.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}
