package models

const (
	// CategoryAll is the pseudo-category meaning "no category filter". It is
	// never used as a channel group.
	CategoryAll = "all"

	// UncategorizedGroup is assigned to channels whose metadata carries no group-title
	UncategorizedGroup = "uncategorized"

	// UnnamedChannel is the display name used when the metadata line has no name
	UnnamedChannel = "Unnamed channel"
)

// Channel represents one playable entry parsed from a playlist.
// Values are never modified once the parser has appended them.
type Channel struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	LogoURL   *string `json:"logo_url,omitempty"`
	Group     string  `json:"group"`
	TvgID     *string `json:"tvg_id,omitempty"`
	TvgName   *string `json:"tvg_name,omitempty"`
	StreamURL string  `json:"stream_url"`
}

// HasLogo reports whether the channel carries a logo URL
func (c Channel) HasLogo() bool {
	return c.LogoURL != nil && *c.LogoURL != ""
}

// PlayRequest is handed to the playback collaborator on row activation
type PlayRequest struct {
	StreamURL string `json:"stream_url"`
	Name      string `json:"name"`
}

// PlayRequest builds the playback request for this channel
func (c Channel) PlayRequest() PlayRequest {
	return PlayRequest{StreamURL: c.StreamURL, Name: c.Name}
}
