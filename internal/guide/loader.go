// Package guide is the guide-loading collaborator: it downloads the EPG
// document a playlist points at and remembers its location.
package guide

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/glefebvre/zapper/internal/database"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
)

// DocumentFetcher retrieves a remote document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// URLStore persists the guide location.
type URLStore interface {
	SetGuideURL(ctx context.Context, url string) error
}

// Info describes the last guide load.
type Info struct {
	URL        string    `json:"url"`
	Channels   int       `json:"channels"`
	Programmes int       `json:"programmes"`
	LoadedAt   time.Time `json:"loaded_at"`
	Error      string    `json:"error,omitempty"`
}

// Loader loads guides in the background. Failures are logged and kept in
// Info; they never reach the playlist session.
type Loader struct {
	fetcher DocumentFetcher
	store   URLStore
	log     *logger.Logger
	timeout time.Duration
	enabled bool

	mu   sync.Mutex
	info *Info
	wg   sync.WaitGroup
}

// NewLoader creates a loader. store may be nil.
func NewLoader(fetcher DocumentFetcher, store URLStore, enabled bool, timeout time.Duration, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.AppLogger()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Loader{
		fetcher: fetcher,
		store:   store,
		log:     log,
		timeout: timeout,
		enabled: enabled,
	}
}

// Discovered remembers url and loads it in the background.
func (l *Loader) Discovered(url string) {
	l.log.WithFields(map[string]interface{}{"url": url}).Info("guide url found in playlist")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if l.store != nil {
			if err := l.store.SetGuideURL(ctx, url); err != nil && !errors.Is(err, database.ErrDisabled) {
				l.log.Error("failed to remember guide url", err)
			}
		}
		if err := l.Load(ctx, url); err != nil {
			l.log.WithFields(map[string]interface{}{"url": url}).Warn("guide load failed: " + err.Error())
		}
	}()
}

// Load downloads and inspects the guide at url.
func (l *Loader) Load(ctx context.Context, url string) error {
	if !l.enabled {
		l.log.Debug("guide loading disabled")
		return nil
	}

	info := Info{URL: url, LoadedAt: time.Now()}
	doc, err := l.fetcher.Fetch(ctx, url)
	if err == nil {
		info.Channels, info.Programmes, err = summarize(doc)
	}
	if err != nil {
		err = apperrors.GuideError("failed to load guide", err)
		info.Error = err.Error()
	}

	l.mu.Lock()
	l.info = &info
	l.mu.Unlock()

	if err != nil {
		return err
	}
	l.log.WithFields(map[string]interface{}{
		"url":        url,
		"channels":   info.Channels,
		"programmes": info.Programmes,
	}).Info("guide loaded")
	return nil
}

// Info returns the result of the last load, if any.
func (l *Loader) Info() (Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.info == nil {
		return Info{}, false
	}
	return *l.info, true
}

// Wait blocks until background loads have finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// summarize counts the channel and programme elements of an XMLTV document.
func summarize(doc string) (channels, programmes int, err error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Entity = xml.HTMLEntity
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return channels, programmes, nil
		}
		if err != nil {
			return channels, programmes, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			switch start.Name.Local {
			case "channel":
				channels++
			case "programme":
				programmes++
			}
		}
	}
}
