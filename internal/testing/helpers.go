package testing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glefebvre/zapper/internal/database"
	"github.com/glefebvre/zapper/internal/models"
)

// TestDB creates an in-memory SQLite database for testing
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// every pooled connection would get its own empty :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// CleanupDB removes all records from test database tables
func CleanupDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	db.Exec("DELETE FROM settings")
	db.Exec("DELETE FROM load_runs")
}

// CreateLoadRun creates a test load run
func CreateLoadRun(db *gorm.DB, overrides ...func(*models.LoadRun)) *models.LoadRun {
	now := time.Now()
	run := &models.LoadRun{
		ID:            uuid.New().String(),
		Source:        "http://example.com/playlist.m3u",
		Generation:    1,
		Status:        models.LoadStatusCompleted,
		ChannelCount:  10,
		CategoryCount: 2,
		StartedAt:     now,
		CompletedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, override := range overrides {
		override(run)
	}

	db.Create(run)
	return run
}

// WithStartedAt sets the start time of a load run
func WithStartedAt(at time.Time) func(*models.LoadRun) {
	return func(run *models.LoadRun) {
		run.StartedAt = at
	}
}

// WithStatus sets the status of a load run
func WithStatus(status models.LoadStatus) func(*models.LoadRun) {
	return func(run *models.LoadRun) {
		run.Status = status
	}
}

// Entry is one channel of a generated playlist document
type Entry struct {
	Name  string
	Group string
	Logo  string
	URL   string
}

// Playlist renders entries as a playlist document with the #EXTM3U header
func Playlist(entries ...Entry) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for i, e := range entries {
		b.WriteString("#EXTINF:-1")
		if e.Logo != "" {
			fmt.Fprintf(&b, " tvg-logo=%q", e.Logo)
		}
		if e.Group != "" {
			fmt.Fprintf(&b, " group-title=%q", e.Group)
		}
		fmt.Fprintf(&b, ",%s\n", e.Name)

		url := e.URL
		if url == "" {
			url = fmt.Sprintf("http://example.com/%d.m3u8", i)
		}
		b.WriteString(url + "\n")
	}
	return b.String()
}

// GeneratePlaylist renders n channels spread round-robin over groups
func GeneratePlaylist(n int, groups ...string) string {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Name: fmt.Sprintf("Channel %d", i)}
		if len(groups) > 0 {
			entries[i].Group = groups[i%len(groups)]
		}
	}
	return Playlist(entries...)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual[T comparable](t *testing.T, expected, actual T, message string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}
