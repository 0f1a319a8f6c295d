package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glefebvre/zapper/internal/database"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/session"
)

const historyWriteTimeout = 5 * time.Second

// HistorySink records every session load as a LoadRun. It is a
// session.Sink; only the load lifecycle signals are used.
type HistorySink struct {
	session.NopSink

	store *Store
	log   *logger.Logger

	mu   sync.Mutex
	runs map[uint64]string
}

// NewHistorySink creates a sink writing to store.
func NewHistorySink(store *Store, log *logger.Logger) *HistorySink {
	if log == nil {
		log = logger.AppLogger()
	}
	return &HistorySink{store: store, log: log, runs: make(map[uint64]string)}
}

func (h *HistorySink) Started(gen uint64, source string) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	run, err := h.store.StartRun(ctx, source, gen)
	if err != nil {
		h.report("failed to record load start", err)
		return
	}

	h.mu.Lock()
	h.runs[gen] = run.ID
	h.mu.Unlock()
}

func (h *HistorySink) Completed(c session.Completion) {
	id, ok := h.take(c.Generation)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := h.store.CompleteRun(ctx, id, c.ChannelCount, c.CategoryCount); err != nil {
		h.report("failed to record load completion", err)
	}
}

func (h *HistorySink) Superseded(gen uint64) {
	id, ok := h.take(gen)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := h.store.SupersedeRun(ctx, id); err != nil {
		h.report("failed to record superseded load", err)
	}
}

func (h *HistorySink) take(gen uint64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.runs[gen]
	delete(h.runs, gen)
	return id, ok
}

func (h *HistorySink) report(msg string, err error) {
	if errors.Is(err, database.ErrDisabled) {
		return
	}
	h.log.Error(msg, err)
}
