package models

import "time"

// Setting keys remembered by the host between sessions
const (
	SettingPlaylistURL = "playlist_url"
	SettingGuideURL    = "guide_url"
)

// Setting is a persisted key/value pair entered by the user
type Setting struct {
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}
