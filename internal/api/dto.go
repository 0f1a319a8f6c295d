package api

import (
	"github.com/glefebvre/zapper/internal/models"
	"github.com/glefebvre/zapper/internal/session"
	"github.com/glefebvre/zapper/internal/view"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LoadPlaylistRequest starts a new load from a URL, a path or inline content
type LoadPlaylistRequest struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// LoadPlaylistResponse carries the generation of the started parse
type LoadPlaylistResponse struct {
	Generation uint64 `json:"generation"`
	Source     string `json:"source"`
}

// StatusResponse wraps the session status with its rendered line
type StatusResponse struct {
	session.Status
	ParseComplete bool   `json:"parse_complete"`
	StatusLine    string `json:"status_line"`
}

// CategoriesResponse lists the category index, "all" first
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Current    string   `json:"current"`
}

// FilterRequest replaces the filter state
type FilterRequest struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

// ChannelsResponse represents the materialized list
type ChannelsResponse struct {
	view.Snapshot
	State string `json:"state"`
	Shown int    `json:"shown"`
	Total int    `json:"total"`
}

// LoadMoreResponse reports whether a page was appended
type LoadMoreResponse struct {
	Loaded   bool             `json:"loaded"`
	Channels ChannelsResponse `json:"channels"`
}

// ScrollRequest describes the client viewport
type ScrollRequest struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// Position converts the request to a view scroll position
func (r ScrollRequest) Position() view.ScrollPosition {
	return view.ScrollPosition{Top: r.ScrollTop, Height: r.ScrollHeight, ClientHeight: r.ClientHeight}
}

// PlayResponse echoes the activated channel
type PlayResponse struct {
	Channel models.Channel `json:"channel"`
}

// HistoryResponse lists recent load runs
type HistoryResponse struct {
	Runs []models.LoadRun `json:"runs"`
}
