package parser

import (
	"regexp"
	"strings"

	"github.com/glefebvre/zapper/internal/models"
)

// MetadataMarker starts every channel metadata line.
const MetadataMarker = "#EXTINF"

const (
	minMetadataLen = 7
	minStreamLen   = 4
)

// DefaultStreamPrefixes are the scheme prefixes accepted on stream lines.
var DefaultStreamPrefixes = []string{"http"}

var (
	logoPattern    = regexp.MustCompile(`tvg-logo="([^"]+)"`)
	groupPattern   = regexp.MustCompile(`group-title="([^"]+)"`)
	tvgIDPattern   = regexp.MustCompile(`tvg-id="([^"]+)"`)
	tvgNamePattern = regexp.MustCompile(`tvg-name="([^"]+)"`)

	guideURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)x-tvg-url="([^"]+)"`),
		regexp.MustCompile(`(?i)url-tvg="([^"]+)"`),
	}
)

// Draft holds the metadata of a channel whose stream line has not been seen yet.
type Draft struct {
	Name    string
	LogoURL *string
	Group   string
	TvgID   *string
	TvgName *string
}

// IsMetadataLine is the fast-path guard for metadata lines. It does not
// validate content: a malformed line carrying the marker still qualifies.
func IsMetadataLine(line string) bool {
	return len(line) > minMetadataLen && line[0] == '#' && strings.HasPrefix(line, MetadataMarker)
}

// ExtractMetadata reads the display name and attributes from a metadata line.
// Missing pieces fall back to their defaults; it never fails.
func ExtractMetadata(line string) Draft {
	draft := Draft{
		Name:  models.UnnamedChannel,
		Group: models.UncategorizedGroup,
	}

	if i := strings.LastIndexByte(line, ','); i >= 0 {
		if name := strings.TrimSpace(line[i+1:]); name != "" {
			draft.Name = name
		}
	}

	if group := attribute(groupPattern, line); group != nil {
		draft.Group = *group
	}
	draft.LogoURL = attribute(logoPattern, line)
	draft.TvgID = attribute(tvgIDPattern, line)
	draft.TvgName = attribute(tvgNamePattern, line)

	return draft
}

func attribute(pattern *regexp.Regexp, line string) *string {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	value := m[1]
	return &value
}

// IsStreamLine reports whether the trimmed line starts with one of the
// accepted scheme prefixes. The check is a case-sensitive prefix match, not
// URI validation.
func IsStreamLine(line string, prefixes []string) bool {
	line = strings.TrimSpace(line)
	if len(line) <= minStreamLen {
		return false
	}
	if len(prefixes) == 0 {
		prefixes = DefaultStreamPrefixes
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Finalize turns the draft into a channel once its stream line is known.
func (d Draft) Finalize(id int, streamLine string) models.Channel {
	return models.Channel{
		ID:        id,
		Name:      d.Name,
		LogoURL:   d.LogoURL,
		Group:     d.Group,
		TvgID:     d.TvgID,
		TvgName:   d.TvgName,
		StreamURL: strings.TrimSpace(streamLine),
	}
}

// Extract pairs one metadata line with the line that follows it. It returns
// nil unless the first is a metadata line and the second a stream line.
func Extract(metadataLine, streamLine string, id int, prefixes []string) *models.Channel {
	if !IsMetadataLine(metadataLine) || !IsStreamLine(streamLine, prefixes) {
		return nil
	}
	ch := ExtractMetadata(metadataLine).Finalize(id, streamLine)
	return &ch
}

// ExtractGuideURL looks for a guide source embedded in the playlist, trying
// x-tvg-url before url-tvg.
func ExtractGuideURL(doc string) (string, bool) {
	for _, pattern := range guideURLPatterns {
		if m := pattern.FindStringSubmatch(doc); m != nil {
			return m[1], true
		}
	}
	return "", false
}
