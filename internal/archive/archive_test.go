package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glefebvre/zapper/internal/config"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
)

func setupTestArchive(t *testing.T, retention int) (*Archive, string) {
	t.Helper()

	dir := t.TempDir()
	a := New(config.ArchiveConfig{Dir: dir, Retention: retention}, logger.Discard())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return a, dir
}

func TestSave(t *testing.T) {
	a, dir := setupTestArchive(t, 3)
	content := "#EXTM3U\n#EXTINF:-1,Test\nhttp://example.com/stream\n"

	path, err := a.Save(content)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("archive written outside %s: %s", dir, path)
	}
	if filepath.Base(path) != "playlist_20240101_120100.000000.m3u" {
		t.Errorf("unexpected archive name: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read archive: %v", err)
	}
	if string(data) != content {
		t.Error("archived content does not match")
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".playlist-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestSaveRotates(t *testing.T) {
	a, _ := setupTestArchive(t, 2)

	for i := 0; i < 4; i++ {
		if _, err := a.Save("#EXTM3U\n"); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	archives, err := a.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("expected 2 archives after rotation, got %d", len(archives))
	}
	if archives[0].Name != "playlist_20240101_120400.000000.m3u" {
		t.Errorf("newest archive should come first, got %s", archives[0].Name)
	}
	if !archives[0].SavedAt.After(archives[1].SavedAt) {
		t.Error("archives not sorted newest first")
	}
}

func TestListIgnoresOtherFiles(t *testing.T) {
	a, dir := setupTestArchive(t, 3)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "playlist_garbage.m3u"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "playlist_20240101_120000.000000.m3u"), 0o755)

	archives, err := a.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("expected no archives, got %v", archives)
	}
}

func TestListMissingDirectory(t *testing.T) {
	a := New(config.ArchiveConfig{Dir: filepath.Join(t.TempDir(), "missing"), Retention: 1}, logger.Discard())

	archives, err := a.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("expected empty list, got %d", len(archives))
	}
}

func TestReadLatest(t *testing.T) {
	a, _ := setupTestArchive(t, 3)

	if _, _, err := a.ReadLatest(); apperrors.GetErrorCode(err) != apperrors.CodeNotFound {
		t.Fatalf("expected not found on empty archive, got %v", err)
	}

	a.Save("#EXTM3U\nold\n")
	a.Save("#EXTM3U\nnew\n")

	doc, entry, err := a.ReadLatest()
	if err != nil {
		t.Fatalf("ReadLatest failed: %v", err)
	}
	if doc != "#EXTM3U\nnew\n" {
		t.Errorf("expected newest document, got %q", doc)
	}
	if entry.SizeBytes != int64(len(doc)) {
		t.Errorf("size mismatch: %d", entry.SizeBytes)
	}
}

func TestDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ArchiveConfig
	}{
		{"no directory", config.ArchiveConfig{Retention: 3}},
		{"no retention", config.ArchiveConfig{Dir: t.TempDir()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.cfg, logger.Discard())
			if a.Enabled() {
				t.Fatal("archive should be disabled")
			}
			path, err := a.Save("#EXTM3U\n")
			if err != nil || path != "" {
				t.Errorf("Save on disabled archive: path=%q err=%v", path, err)
			}
		})
	}

	var nilArchive *Archive
	if nilArchive.Enabled() {
		t.Error("nil archive should be disabled")
	}
}
