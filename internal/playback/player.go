// Package playback hands activated channels to a media player.
package playback

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/glefebvre/zapper/internal/config"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
)

const (
	urlPlaceholder  = "{url}"
	namePlaceholder = "{name}"
)

// CommandPlayer starts an external player program for each activation.
// Starting a new channel stops the previous player process.
type CommandPlayer struct {
	command  string
	args     []string
	log      *logger.Logger
	lookPath func(string) (string, error)
	kill     func(*os.Process) error

	mu      sync.Mutex
	current *exec.Cmd
}

// NewCommandPlayer creates a player from configuration.
func NewCommandPlayer(cfg config.PlayerConfig, log *logger.Logger) *CommandPlayer {
	if log == nil {
		log = logger.AppLogger()
	}
	return &CommandPlayer{
		command:  strings.TrimSpace(cfg.Command),
		args:     cfg.Args,
		log:      log,
		lookPath: exec.LookPath,
		kill:     (*os.Process).Kill,
	}
}

// Play starts the player on req.StreamURL. Arguments may reference {url}
// and {name}; without {url} the stream URL is appended.
func (p *CommandPlayer) Play(req models.PlayRequest) error {
	if p.command == "" {
		return apperrors.PlaybackUnsupported("no player command configured")
	}
	if req.StreamURL == "" {
		return apperrors.ValidationError("stream url is empty")
	}

	path, err := p.lookPath(p.command)
	if err != nil {
		return apperrors.PlaybackUnsupported(fmt.Sprintf("player %q not found", p.command)).WithContext("error", err.Error())
	}

	args := p.buildArgs(req)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stopLocked(); err != nil {
		p.log.WithFields(map[string]interface{}{
			"player": p.command,
			"error":  err.Error(),
		}).Warn("previous player could not be stopped")
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return apperrors.PlaybackError("failed to start player", err)
	}
	p.current = cmd

	p.log.WithFields(map[string]interface{}{
		"player": p.command,
		"name":   req.Name,
		"url":    req.StreamURL,
		"pid":    cmd.Process.Pid,
	}).Info("playback started")

	go p.reap(cmd)
	return nil
}

func (p *CommandPlayer) buildArgs(req models.PlayRequest) []string {
	args := make([]string, 0, len(p.args)+1)
	hasURL := false
	for _, a := range p.args {
		if strings.Contains(a, urlPlaceholder) {
			hasURL = true
		}
		a = strings.ReplaceAll(a, urlPlaceholder, req.StreamURL)
		a = strings.ReplaceAll(a, namePlaceholder, req.Name)
		args = append(args, a)
	}
	if !hasURL {
		args = append(args, req.StreamURL)
	}
	return args
}

func (p *CommandPlayer) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	if p.current == cmd {
		p.current = nil
	}
	p.mu.Unlock()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.log.Error("player process failed", err)
	}
}

// Stop terminates the running player, if any.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *CommandPlayer) stopLocked() error {
	if p.current == nil || p.current.Process == nil {
		return nil
	}
	err := p.kill(p.current.Process)
	p.current = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return apperrors.PlaybackError("failed to stop player", err)
	}
	return nil
}

// Recorder is a player that only remembers what it was asked to play.
type Recorder struct {
	mu     sync.Mutex
	played []models.PlayRequest
	Err    error
}

// Play records req and returns r.Err.
func (r *Recorder) Play(req models.PlayRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, req)
	return r.Err
}

// Played returns every recorded request.
func (r *Recorder) Played() []models.PlayRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PlayRequest(nil), r.played...)
}
