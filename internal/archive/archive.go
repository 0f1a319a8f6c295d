// Package archive keeps rotated copies of retrieved playlists so the last
// good document can be reloaded without the network.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glefebvre/zapper/internal/config"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
)

const (
	filePrefix = "playlist_"
	fileSuffix = ".m3u"
	timeLayout = "20060102_150405.000000"
)

// Archive handles playlist copies and their rotation
type Archive struct {
	dir       string
	retention int
	logger    *logger.Logger
	now       func() time.Time
}

// Entry describes an archived playlist
type Entry struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	SavedAt   time.Time `json:"saved_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// New creates an archive. It is disabled when cfg has no directory or
// keeps no copies.
func New(cfg config.ArchiveConfig, log *logger.Logger) *Archive {
	if log == nil {
		log = logger.AppLogger()
	}
	return &Archive{
		dir:       cfg.Dir,
		retention: cfg.Retention,
		logger:    log,
		now:       time.Now,
	}
}

// Enabled reports whether Save keeps anything
func (a *Archive) Enabled() bool {
	return a != nil && a.dir != "" && a.retention > 0
}

// Dir returns the archive directory path
func (a *Archive) Dir() string {
	return a.dir
}

// Save writes doc as a new timestamped copy, then drops copies beyond the
// retention count. It returns the path of the new copy.
func (a *Archive) Save(doc string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := filePrefix + a.now().UTC().Format(timeLayout) + fileSuffix
	path := filepath.Join(a.dir, name)

	// readers never see a partial copy
	tmp, err := os.CreateTemp(a.dir, ".playlist-*")
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := tmp.WriteString(doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to sync archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move archive file: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"archive": path,
		"bytes":   len(doc),
	}).Debug("playlist archived")

	return path, a.Rotate()
}

// List returns archived playlists, newest first
func (a *Archive) List() ([]Entry, error) {
	if a.dir == "" {
		return []Entry{}, nil
	}
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	archives := []Entry{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		savedAt, err := time.Parse(timeLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			a.logger.WithFields(map[string]interface{}{
				"name": name,
			}).Warn("failed to stat archive file")
			continue
		}

		archives = append(archives, Entry{
			Path:      filepath.Join(a.dir, name),
			Name:      name,
			SavedAt:   savedAt,
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].SavedAt.After(archives[j].SavedAt)
	})
	return archives, nil
}

// Rotate deletes copies beyond the retention count
func (a *Archive) Rotate() error {
	archives, err := a.List()
	if err != nil {
		return err
	}
	if len(archives) <= a.retention {
		return nil
	}

	var failed int
	for _, entry := range archives[max(a.retention, 0):] {
		if err := os.Remove(entry.Path); err != nil {
			a.logger.WithFields(map[string]interface{}{
				"path": entry.Path,
			}).Warn("failed to delete archive file: " + err.Error())
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to delete %d archive files", failed)
	}
	return nil
}

// Latest returns the newest archived playlist
func (a *Archive) Latest() (*Entry, error) {
	archives, err := a.List()
	if err != nil {
		return nil, err
	}
	if len(archives) == 0 {
		return nil, apperrors.NotFoundError("archived playlist", a.dir)
	}
	return &archives[0], nil
}

// ReadLatest returns the newest archived document and its entry
func (a *Archive) ReadLatest() (string, *Entry, error) {
	entry, err := a.Latest()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read archive file: %w", err)
	}
	return string(data), entry, nil
}
