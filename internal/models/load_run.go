package models

import "time"

// LoadStatus represents the outcome of a playlist load
type LoadStatus string

const (
	LoadStatusInProgress LoadStatus = "in_progress"
	LoadStatusCompleted  LoadStatus = "completed"
	LoadStatusSuperseded LoadStatus = "superseded"
	LoadStatusFailed     LoadStatus = "failed"
)

// LoadRun records one playlist load performed by the host.
// Only counts are kept; parsed channels are never persisted.
type LoadRun struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Source        string     `gorm:"type:text;not null" json:"source"`
	Generation    uint64     `gorm:"not null" json:"generation"`
	Status        LoadStatus `gorm:"type:varchar(20);not null;index:idx_load_runs_status" json:"status"`
	ChannelCount  int        `gorm:"not null;default:0" json:"channel_count"`
	CategoryCount int        `gorm:"not null;default:0" json:"category_count"`
	StartedAt     time.Time  `gorm:"not null;index:idx_load_runs_started" json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ErrorMessage  *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for LoadRun
func (LoadRun) TableName() string {
	return "load_runs"
}
