package guide

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
)

const sampleGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="bbc1.uk"><display-name>BBC One</display-name></channel>
  <channel id="itv.uk"><display-name>ITV</display-name></channel>
  <programme channel="bbc1.uk" start="20240101000000 +0000"><title>News</title></programme>
  <programme channel="bbc1.uk" start="20240101010000 +0000"><title>Weather</title></programme>
  <programme channel="itv.uk" start="20240101000000 +0000"><title>Film</title></programme>
</tv>`

type stubFetcher struct {
	body string
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return s.body, s.err
}

type memoryStore struct {
	mu   sync.Mutex
	urls []string
}

func (m *memoryStore) SetGuideURL(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	return nil
}

func TestLoad(t *testing.T) {
	l := NewLoader(stubFetcher{body: sampleGuide}, nil, true, time.Second, logger.Discard())

	require.NoError(t, l.Load(context.Background(), "http://guide/epg.xml"))

	info, ok := l.Info()
	require.True(t, ok)
	assert.Equal(t, "http://guide/epg.xml", info.URL)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 3, info.Programmes)
	assert.Empty(t, info.Error)
}

func TestLoadFailure(t *testing.T) {
	l := NewLoader(stubFetcher{err: errors.New("unreachable")}, nil, true, time.Second, logger.Discard())

	err := l.Load(context.Background(), "http://guide/epg.xml")
	assert.Equal(t, apperrors.CodeGuide, apperrors.GetErrorCode(err))

	info, ok := l.Info()
	require.True(t, ok)
	assert.NotEmpty(t, info.Error)
}

func TestLoadDisabled(t *testing.T) {
	l := NewLoader(stubFetcher{err: errors.New("must not be called")}, nil, false, time.Second, logger.Discard())

	require.NoError(t, l.Load(context.Background(), "http://guide/epg.xml"))
	_, ok := l.Info()
	assert.False(t, ok)
}

func TestDiscoveredRemembersAndLoads(t *testing.T) {
	store := &memoryStore{}
	l := NewLoader(stubFetcher{body: sampleGuide}, store, true, time.Second, logger.Discard())

	l.Discovered("http://guide/epg.xml")
	l.Wait()

	assert.Equal(t, []string{"http://guide/epg.xml"}, store.urls)
	info, ok := l.Info()
	require.True(t, ok)
	assert.Equal(t, 2, info.Channels)
}

func TestSummarizeMalformed(t *testing.T) {
	_, _, err := summarize("<tv><channel></tv>")
	assert.Error(t, err)
}
