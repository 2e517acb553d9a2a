// Package discovery finds source videos to cut clips from and downloads them.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// Source kinds recorded on SourceVideo.
const (
	KindChannel = "channel"
	KindSearch  = "search"
)

// SourceVideo is a candidate long-form video, identified by its platform id.
type SourceVideo struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Channel   string  `json:"channel,omitempty"`
	Duration  float64 `json:"duration"`
	ViewCount int64   `json:"view_count"`
	// Kind records whether the video came from a channel scan or a search.
	Kind string `json:"kind,omitempty"`
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// SeenFunc reports whether a video id was processed before.
type SeenFunc func(id string) bool

// Finder returns fresh candidates, best first. Implementations must skip ids
// for which seen returns true.
type Finder interface {
	Find(ctx context.Context, seen SeenFunc) ([]SourceVideo, error)
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO-8601 "PT#H#M#S" duration to seconds.
// Anything that does not match yields 0.
func ParseISODuration(value string) int {
	match := isoDurationPattern.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}

// FormatDuration renders seconds as M:SS or H:MM:SS for logs and tables.
func FormatDuration(seconds float64) string {
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
