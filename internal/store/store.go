// Package store persists what the host remembers between sessions: the
// user-entered playlist and guide URLs and a history of playlist loads.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glefebvre/zapper/internal/database"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/models"
)

// DefaultHistoryLimit bounds RecentRuns when no limit is given.
const DefaultHistoryLimit = 20

// Store wraps the settings and history tables. A nil *Store, or one
// without a connection, answers every call with database.ErrDisabled.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a store over conn.
func New(conn *gorm.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

func (s *Store) enabled() bool {
	return s != nil && s.db != nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if !s.enabled() {
		return "", false, database.ErrDisabled
	}

	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.StoreError("failed to read setting", err).WithContext("key", key)
	}
	return setting.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if !s.enabled() {
		return database.ErrDisabled
	}

	now := s.now()
	setting := models.Setting{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return apperrors.StoreError("failed to write setting", err).WithContext("key", key)
	}
	return nil
}

// PlaylistURL returns the last playlist URL the user loaded.
func (s *Store) PlaylistURL(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, models.SettingPlaylistURL)
	return v, err
}

// SetPlaylistURL remembers the playlist URL.
func (s *Store) SetPlaylistURL(ctx context.Context, url string) error {
	return s.Set(ctx, models.SettingPlaylistURL, url)
}

// GuideURL returns the remembered guide URL.
func (s *Store) GuideURL(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, models.SettingGuideURL)
	return v, err
}

// SetGuideURL remembers the guide URL.
func (s *Store) SetGuideURL(ctx context.Context, url string) error {
	return s.Set(ctx, models.SettingGuideURL, url)
}

// StartRun records a load that has just started.
func (s *Store) StartRun(ctx context.Context, source string, generation uint64) (*models.LoadRun, error) {
	if !s.enabled() {
		return nil, database.ErrDisabled
	}

	now := s.now()
	run := &models.LoadRun{
		ID:         uuid.New().String(),
		Source:     source,
		Generation: generation,
		Status:     models.LoadStatusInProgress,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, apperrors.StoreError("failed to record load", err)
	}
	return run, nil
}

// CompleteRun marks a run completed with its counts.
func (s *Store) CompleteRun(ctx context.Context, id string, channels, categories int) error {
	now := s.now()
	return s.updateRun(ctx, id, map[string]interface{}{
		"status":         models.LoadStatusCompleted,
		"channel_count":  channels,
		"category_count": categories,
		"completed_at":   now,
		"updated_at":     now,
	})
}

// SupersedeRun marks a run abandoned in favour of a newer load.
func (s *Store) SupersedeRun(ctx context.Context, id string) error {
	now := s.now()
	return s.updateRun(ctx, id, map[string]interface{}{
		"status":       models.LoadStatusSuperseded,
		"completed_at": now,
		"updated_at":   now,
	})
}

// FailRun records a load whose document could not be retrieved.
func (s *Store) FailRun(ctx context.Context, source string, cause error) (*models.LoadRun, error) {
	if !s.enabled() {
		return nil, database.ErrDisabled
	}

	now := s.now()
	msg := cause.Error()
	run := &models.LoadRun{
		ID:           uuid.New().String(),
		Source:       source,
		Status:       models.LoadStatusFailed,
		StartedAt:    now,
		CompletedAt:  &now,
		ErrorMessage: &msg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, apperrors.StoreError("failed to record failed load", err)
	}
	return run, nil
}

func (s *Store) updateRun(ctx context.Context, id string, fields map[string]interface{}) error {
	if !s.enabled() {
		return database.ErrDisabled
	}

	res := s.db.WithContext(ctx).Model(&models.LoadRun{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperrors.StoreError("failed to update load", res.Error).WithContext("id", id)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundError("load run", id)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.LoadRun, error) {
	if !s.enabled() {
		return nil, database.ErrDisabled
	}

	var run models.LoadRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("load run", id)
	}
	if err != nil {
		return nil, apperrors.StoreError("failed to read load", err)
	}
	return &run, nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.LoadRun, error) {
	if !s.enabled() {
		return nil, database.ErrDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var runs []models.LoadRun
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, apperrors.StoreError("failed to list loads", err)
	}
	return runs, nil
}
