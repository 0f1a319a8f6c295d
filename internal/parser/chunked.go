// Package parser turns playlist text into channel records without ever
// holding the scheduler for longer than one chunk of lines.
package parser

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/glefebvre/zapper/internal/catalog"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
	"github.com/glefebvre/zapper/internal/scheduler"
)

// DefaultChunkSize is the number of lines processed per scheduling turn.
const DefaultChunkSize = 5000

// Options configures a chunked parse.
type Options struct {
	ChunkSize      int
	StreamPrefixes []string
	Logger         *logger.Logger
}

// Callbacks connect a parse to its owner. Every callback runs on the
// scheduler. IsCurrent is required; the others are optional.
type Callbacks struct {
	// IsCurrent reports whether gen still owns the accumulation. A chunk
	// whose generation is no longer current abandons the parse.
	IsCurrent func(gen uint64) bool

	// OnProgress receives the percentage of lines processed after each chunk.
	OnProgress func(gen uint64, percent int)

	// OnGuideURL receives a guide source found in the document before the
	// first chunk. Its failures never affect the parse.
	OnGuideURL func(url string)

	// OnComplete is raised exactly once, after the last chunk.
	OnComplete func(Result)

	// OnAbandon is raised when a superseded parse stops.
	OnAbandon func(gen uint64)
}

// Stats summarises one parse.
type Stats struct {
	TotalLines     int           `json:"total_lines"`
	MetadataLines  int           `json:"metadata_lines"`
	Channels       int           `json:"channels"`
	OrphanMetadata int           `json:"orphan_metadata"`
	OrphanURLs     int           `json:"orphan_urls"`
	SkippedLines   int           `json:"skipped_lines"`
	Chunks         int           `json:"chunks"`
	Duration       time.Duration `json:"duration"`
}

// Result is the terminal output of a parse.
type Result struct {
	Generation uint64
	Channels   []models.Channel
	Categories *catalog.Set
	Stats      Stats
}

// ChannelCount is the number of finalized channels.
func (r Result) ChannelCount() int {
	return len(r.Channels)
}

// CategoryCount is the number of real groups, excluding "all".
func (r Result) CategoryCount() int {
	if r.Categories == nil {
		return 0
	}
	return r.Categories.GroupCount()
}

// Job is one in-flight chunked parse.
type Job struct {
	gen       uint64
	logCtx    context.Context
	sched     scheduler.Scheduler
	cb        Callbacks
	opts      Options
	log       *logger.Logger
	lines     []string
	index     int
	draft     *Draft
	channels  []models.Channel
	groups    *catalog.Set
	stats     Stats
	startedAt time.Time
	lastPct   int
	done      bool
}

// Start splits doc into lines, surfaces an embedded guide URL and posts the
// first chunk onto sched. It returns immediately.
func Start(sched scheduler.Scheduler, doc string, gen uint64, opts Options, cb Callbacks) (*Job, error) {
	if sched == nil {
		return nil, fmt.Errorf("parser: scheduler is required")
	}
	if cb.IsCurrent == nil {
		return nil, fmt.Errorf("parser: IsCurrent callback is required")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if len(opts.StreamPrefixes) == 0 {
		opts.StreamPrefixes = DefaultStreamPrefixes
	}
	log := opts.Logger
	if log == nil {
		log = logger.AppLogger()
	}

	j := &Job{
		gen:       gen,
		logCtx:    logger.ContextWithGeneration(context.Background(), gen),
		sched:     sched,
		cb:        cb,
		opts:      opts,
		log:       log,
		lines:     strings.Split(doc, "\n"),
		channels:  make([]models.Channel, 0),
		groups:    catalog.NewSet(),
		startedAt: time.Now(),
	}
	j.stats.TotalLines = len(j.lines)

	log.WithFields(map[string]interface{}{
		"lines":      len(j.lines),
		"chunk_size": opts.ChunkSize,
	}).DebugContext(j.logCtx, "starting chunked parse")

	if url, ok := ExtractGuideURL(doc); ok {
		j.surfaceGuideURL(url)
	}

	sched.Post(j.step)
	return j, nil
}

// Generation returns the generation this job was started with.
func (j *Job) Generation() uint64 {
	return j.gen
}

func (j *Job) surfaceGuideURL(url string) {
	if j.cb.OnGuideURL == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			j.log.ErrorContext(j.logCtx, "guide url handler panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	j.cb.OnGuideURL(url)
}

// step processes one chunk and yields.
func (j *Job) step() {
	if j.done {
		return
	}
	if !j.cb.IsCurrent(j.gen) {
		j.abandon()
		return
	}

	end := min(j.index+j.opts.ChunkSize, len(j.lines))
	for ; j.index < end; j.index++ {
		j.processLine(j.lines[j.index])
	}
	j.stats.Chunks++

	j.reportProgress()

	if j.index < len(j.lines) {
		j.sched.Post(j.step)
		return
	}
	j.finish()
}

func (j *Job) processLine(line string) {
	switch {
	case IsMetadataLine(line):
		j.stats.MetadataLines++
		if j.draft != nil {
			j.stats.OrphanMetadata++
		}
		draft := ExtractMetadata(line)
		j.groups.Add(draft.Group)
		j.draft = &draft

	case IsStreamLine(line, j.opts.StreamPrefixes):
		if j.draft == nil {
			j.stats.OrphanURLs++
			return
		}
		j.channels = append(j.channels, j.draft.Finalize(len(j.channels), line))
		j.draft = nil

	default:
		j.stats.SkippedLines++
	}
}

func (j *Job) reportProgress() {
	pct := 100
	if total := len(j.lines); total > 0 {
		pct = int(math.Round(float64(j.index) / float64(total) * 100))
	}
	if pct < j.lastPct {
		pct = j.lastPct
	}
	j.lastPct = pct

	if j.cb.OnProgress != nil {
		j.cb.OnProgress(j.gen, pct)
	}
}

func (j *Job) finish() {
	j.done = true

	if j.draft != nil {
		j.stats.OrphanMetadata++
		j.draft = nil
	}
	j.groups.AddAll()

	j.stats.Channels = len(j.channels)
	j.stats.Duration = time.Since(j.startedAt)

	result := Result{
		Generation: j.gen,
		Channels:   j.channels,
		Categories: j.groups,
		Stats:      j.stats,
	}
	j.lines = nil

	j.log.WithFields(map[string]interface{}{
		"total_lines":     j.stats.TotalLines,
		"channels":        j.stats.Channels,
		"categories":      result.CategoryCount(),
		"orphan_metadata": j.stats.OrphanMetadata,
		"orphan_urls":     j.stats.OrphanURLs,
		"chunks":          j.stats.Chunks,
		"duration_ms":     j.stats.Duration.Milliseconds(),
	}).InfoContext(j.logCtx, "parsing complete")

	if j.cb.OnComplete != nil {
		j.cb.OnComplete(result)
	}
}

func (j *Job) abandon() {
	j.done = true
	j.lines = nil

	j.log.WithFields(map[string]interface{}{
		"line": j.index,
	}).DebugContext(j.logCtx, "parse superseded, abandoning")

	if j.cb.OnAbandon != nil {
		j.cb.OnAbandon(j.gen)
	}
}
