package vk

import (
	"fmt"
	"regexp"
	"strings"

	errs "vkdl/pkg/errors"
)

var albumIDPattern = regexp.MustCompile(`album(-?\d+_\d+)`)

// NormalizeAlbumURL maps the mobile host onto the desktop host and
// strips any query string
func NormalizeAlbumURL(raw string) string {
	u := strings.Replace(raw, "//m.vk.com", "//vk.com", 1)
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	return u
}

// ParseAlbumID extracts the album identifier from an album URL:
// .../album-123_456 yields "-123_456". The owner ID may be negative.
func ParseAlbumID(albumURL string) (string, error) {
	m := albumIDPattern.FindStringSubmatch(albumURL)
	if m == nil {
		return "", &errs.Error{
			Type:    errs.ErrorTypeBadInput,
			Message: fmt.Sprintf("could not parse album id from URL: %s", albumURL),
		}
	}
	return m[1], nil
}

// DefaultDestDir derives the default destination directory name from an
// album identifier
func DefaultDestDir(albumID string) string {
	return "vk_album_" + albumID
}
