package main

import (
	"context"
	"errors"
	"time"

	"github.com/glefebvre/zapper/internal/archive"
	"github.com/glefebvre/zapper/internal/config"
	"github.com/glefebvre/zapper/internal/database"
	"github.com/glefebvre/zapper/internal/fetcher"
	"github.com/glefebvre/zapper/internal/guide"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/playback"
	"github.com/glefebvre/zapper/internal/scheduler"
	"github.com/glefebvre/zapper/internal/session"
	"github.com/glefebvre/zapper/internal/shutdown"
	"github.com/glefebvre/zapper/internal/store"
)

const shutdownTimeout = 30 * time.Second

// app holds the wiring shared by every command.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	loop     *scheduler.Loop
	session  *session.Session
	fetcher  *fetcher.Fetcher
	archive  *archive.Archive
	store    *store.Store
	guide    *guide.Loader
	player   *playback.CommandPlayer
	shutdown *shutdown.Handler
}

// newApp opens the database, starts the scheduler loop and builds the
// session. Extra sinks receive every session signal.
func newApp(sinks ...session.Sink) (*app, error) {
	cfg := config.Get()
	log := logger.AppLogger()

	if err := database.Initialize(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		loop:     scheduler.NewLoop(),
		store:    store.New(database.Get()),
		fetcher:  fetcher.New("playlist", cfg.Playlist.Fetch, log),
		archive:  archive.New(cfg.Playlist.Archive, log),
		player:   playback.NewCommandPlayer(cfg.Player, log),
		shutdown: shutdown.New(shutdownTimeout),
	}
	a.guide = guide.NewLoader(
		fetcher.New("guide", cfg.Playlist.Fetch, log),
		a.store,
		cfg.Guide.Enabled,
		cfg.Playlist.Fetch.FetchTimeout(),
		log,
	)

	a.shutdown.Register("database", func(ctx context.Context) error {
		log.Debug("closing database connection")
		return database.Close()
	})

	loopCtx, stopLoop := context.WithCancel(context.Background())
	go a.loop.Run(loopCtx)
	a.shutdown.Register("scheduler", func(ctx context.Context) error {
		stopLoop()
		select {
		case <-a.loop.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	a.shutdown.Register("player", func(ctx context.Context) error {
		return a.player.Stop()
	})

	all := append(session.MultiSink{session.NewLogSink(log), store.NewHistorySink(a.store, log)}, sinks...)
	a.session = session.New(a.loop, session.Options{
		ChunkSize:        cfg.Playlist.ChunkSize,
		StreamPrefixes:   cfg.Playlist.StreamPrefixes,
		PageSize:         cfg.View.PageSize,
		ScrollThreshold:  float64(cfg.View.ScrollThreshold),
		DebounceInterval: cfg.DebounceInterval(),
		GuideURL:         a.guideURL(),
		Sink:             all,
		Player:           a.player,
		Guide:            a.guide,
		Logger:           log,
	})

	return a, nil
}

// guideURL returns the configured guide source, falling back to the one
// remembered from an earlier playlist.
func (a *app) guideURL() string {
	if a.cfg.Guide.URL != "" {
		return a.cfg.Guide.URL
	}
	url, err := a.store.GuideURL(context.Background())
	if err != nil && !errors.Is(err, database.ErrDisabled) {
		a.log.Error("failed to read remembered guide url", err)
	}
	return url
}

// playlistSource picks the explicit source, then the configured one, then
// the one remembered from the last session.
func (a *app) playlistSource(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if a.cfg.Playlist.URL != "" {
		return a.cfg.Playlist.URL
	}
	url, err := a.store.PlaylistURL(context.Background())
	if err != nil && !errors.Is(err, database.ErrDisabled) {
		a.log.Error("failed to read remembered playlist url", err)
	}
	return url
}

// loaderFunc adapts a function to the loader interfaces of the API and the
// terminal UI.
type loaderFunc func(ctx context.Context, source string) (string, error)

func (f loaderFunc) Load(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// retrieve reads source and archives remote documents.
func (a *app) retrieve(ctx context.Context, source string) (string, error) {
	doc, err := a.fetcher.Load(ctx, source)
	if err != nil {
		return "", err
	}
	if fetcher.IsRemote(source) {
		if _, err := a.archive.Save(doc); err != nil {
			a.log.Error("failed to archive playlist", err)
		}
	}
	return doc, nil
}

// fetch is retrieve, recording a failed load when source cannot be read.
func (a *app) fetch(ctx context.Context, source string) (string, error) {
	doc, err := a.retrieve(ctx, source)
	if err != nil {
		if _, ferr := a.store.FailRun(ctx, source, err); ferr != nil && !errors.Is(ferr, database.ErrDisabled) {
			a.log.Error("failed to record failed load", ferr)
		}
		return "", err
	}
	return doc, nil
}

// archived returns the newest archived playlist and a source label for it.
func (a *app) archived() (string, string, error) {
	doc, entry, err := a.archive.ReadLatest()
	if err != nil {
		return "", "", err
	}
	return "archive:" + entry.Name, doc, nil
}

// load retrieves source and starts parsing it. A retrieval failure is
// reported to the session; the current list stays in place.
func (a *app) load(ctx context.Context, source string) (uint64, error) {
	doc, err := a.fetch(ctx, source)
	if err != nil {
		if callErr := a.loop.Call(ctx, func() { a.session.Fail(source, err) }); callErr != nil {
			a.log.Error("failed to report load failure to the session", callErr)
		}
		return 0, err
	}

	gen, err := a.start(ctx, source, doc)
	if err != nil {
		return gen, err
	}
	if fetcher.IsRemote(source) {
		a.remember(ctx, source)
	}
	return gen, nil
}

// start hands an already retrieved document to the session.
func (a *app) start(ctx context.Context, source, doc string) (uint64, error) {
	var gen uint64
	var loadErr error
	if err := a.loop.Call(ctx, func() { gen, loadErr = a.session.Load(source, doc) }); err != nil {
		return 0, err
	}
	return gen, loadErr
}

func (a *app) remember(ctx context.Context, source string) {
	if err := a.store.SetPlaylistURL(ctx, source); err != nil && !errors.Is(err, database.ErrDisabled) {
		a.log.Error("failed to remember playlist url", err)
	}
}
