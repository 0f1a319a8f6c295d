package playback

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glefebvre/zapper/internal/config"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
)

var bbc = models.PlayRequest{StreamURL: "http://x/bbc.m3u8", Name: "BBC"}

func TestPlayWithoutCommand(t *testing.T) {
	p := NewCommandPlayer(config.PlayerConfig{}, logger.Discard())

	err := p.Play(bbc)
	assert.Equal(t, apperrors.CodePlaybackUnsupported, apperrors.GetErrorCode(err))
}

func TestPlayMissingBinary(t *testing.T) {
	p := NewCommandPlayer(config.PlayerConfig{Command: "definitely-not-a-player"}, logger.Discard())
	p.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	err := p.Play(bbc)
	assert.Equal(t, apperrors.CodePlaybackUnsupported, apperrors.GetErrorCode(err))
}

func TestPlayEmptyURL(t *testing.T) {
	p := NewCommandPlayer(config.PlayerConfig{Command: "mpv"}, logger.Discard())

	err := p.Play(models.PlayRequest{Name: "x"})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"appends url", []string{"--fs"}, []string{"--fs", "http://x/bbc.m3u8"}},
		{"url placeholder", []string{"--title={name}", "{url}"}, []string{"--title=BBC", "http://x/bbc.m3u8"}},
		{"no args", nil, []string{"http://x/bbc.m3u8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewCommandPlayer(config.PlayerConfig{Command: "mpv", Args: tt.args}, logger.Discard())
			assert.Equal(t, tt.want, p.buildArgs(bbc))
		})
	}
}

func TestPlayStartsAndStopsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX sleep binary")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	// the stream url doubles as the sleep duration
	p := NewCommandPlayer(config.PlayerConfig{Command: "sleep", Args: []string{"{url}"}}, logger.Discard())

	require.NoError(t, p.Play(models.PlayRequest{StreamURL: "5", Name: "n"}))
	p.mu.Lock()
	first := p.current
	p.mu.Unlock()
	require.NotNil(t, first)

	require.NoError(t, p.Play(models.PlayRequest{StreamURL: "5", Name: "n"}))
	p.mu.Lock()
	second := p.current
	p.mu.Unlock()
	assert.NotSame(t, first, second)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}

func TestPlayLogsStopFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX sleep binary")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, MinLevel: logger.LevelDebug})
	p := NewCommandPlayer(config.PlayerConfig{Command: "sleep", Args: []string{"{url}"}}, log)

	require.NoError(t, p.Play(models.PlayRequest{StreamURL: "5", Name: "n"}))
	p.mu.Lock()
	first := p.current
	p.mu.Unlock()
	t.Cleanup(func() { _ = first.Process.Kill() })

	p.kill = func(*os.Process) error { return errors.New("operation not permitted") }
	require.NoError(t, p.Play(models.PlayRequest{StreamURL: "5", Name: "n"}))

	assert.Contains(t, buf.String(), "previous player could not be stopped")
	assert.Contains(t, buf.String(), "operation not permitted")

	p.kill = (*os.Process).Kill
	require.NoError(t, p.Stop())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Play(bbc))

	r.Err = errors.New("boom")
	assert.Error(t, r.Play(bbc))
	assert.Len(t, r.Played(), 2)
}
