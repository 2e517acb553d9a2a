package discovery

import (
	"context"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	ytapi "google.golang.org/api/youtube/v3"
)

// Search defaults.
const (
	DefaultSearchLookback = 10 * 24 * time.Hour
	DefaultSearchResults  = 3
	DefaultMinDuration    = 180
	DefaultMaxDuration    = 7200
	DefaultMinViews       = 50000
)

// SearchFilter holds the acceptance criteria for search results.
type SearchFilter struct {
	MinDuration int    `json:"minDuration" yaml:"minDuration"`
	MaxDuration int    `json:"maxDuration" yaml:"maxDuration"`
	MinViews    uint64 `json:"minViews" yaml:"minViews"`
}

// DefaultSearchFilter accepts 3 minute to 2 hour videos with at least 50k views.
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
		MinViews:    DefaultMinViews,
	}
}

// Accepts reports whether a video with the given duration and views passes.
func (f SearchFilter) Accepts(duration int, views uint64) bool {
	return duration >= f.MinDuration && duration <= f.MaxDuration && views >= f.MinViews
}

// APIFinder searches recent uploads through the YouTube Data API.
type APIFinder struct {
	Service youtube.YouTubeService
	Client  *ytapi.Service

	Queries           []string
	Lookback          time.Duration
	ResultsPerQuery   int64
	MaxCandidates     int
	RegionCode        string
	RelevanceLanguage string
	Filter            SearchFilter

	now func() time.Time
}

// NewAPIFinder returns a finder with the default search window and filter.
func NewAPIFinder(service youtube.YouTubeService, client *ytapi.Service, queries []string) *APIFinder {
	return &APIFinder{
		Service:         service,
		Client:          client,
		Queries:         queries,
		Lookback:        DefaultSearchLookback,
		ResultsPerQuery: DefaultSearchResults,
		Filter:          DefaultSearchFilter(),
		now:             time.Now,
	}
}

// Find runs every query in order. Auth and quota errors abort the scan; other
// per-query failures are logged and skipped.
func (f *APIFinder) Find(ctx context.Context, seen SeenFunc) ([]SourceVideo, error) {
	now := time.Now
	if f.now != nil {
		now = f.now
	}
	query := youtube.SearchQuery{
		PublishedAfter:    now().Add(-f.Lookback),
		MaxResults:        f.ResultsPerQuery,
		RegionCode:        f.RegionCode,
		RelevanceLanguage: f.RelevanceLanguage,
		Order:             "date",
	}

	picked := make(map[string]bool)
	var found []SourceVideo

	for _, q := range f.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		utils.LogInfo("Searching %q", q)
		query.Query = q

		ids, err := f.Service.SearchVideos(ctx, f.Client, query)
		if err != nil {
			if youtube.IsFatal(err) {
				return nil, err
			}
			utils.LogWarning("Search %q failed: %v", q, err)
			continue
		}

		var fresh []string
		for _, id := range ids {
			if picked[id] || (seen != nil && seen(id)) {
				continue
			}
			fresh = append(fresh, id)
		}
		if len(fresh) == 0 {
			continue
		}

		videos, err := f.Service.GetVideoDetails(ctx, f.Client, fresh)
		if err != nil {
			if youtube.IsFatal(err) {
				return nil, err
			}
			utils.LogWarning("Details for %q failed: %v", q, err)
			continue
		}

		for _, v := range videos {
			candidate, ok := f.accept(v)
			if !ok {
				continue
			}
			picked[candidate.ID] = true
			found = append(found, candidate)
			utils.LogVerbose("Found %s: %s (%d views, %s)", candidate.ID, candidate.Title,
				candidate.ViewCount, FormatDuration(candidate.Duration))
			if f.MaxCandidates > 0 && len(found) >= f.MaxCandidates {
				return found, nil
			}
		}
	}

	return found, nil
}

func (f *APIFinder) accept(v *ytapi.Video) (SourceVideo, bool) {
	if v == nil || v.Id == "" {
		return SourceVideo{}, false
	}
	duration := 0
	if v.ContentDetails != nil {
		duration = ParseISODuration(v.ContentDetails.Duration)
	}
	var views uint64
	if v.Statistics != nil {
		views = v.Statistics.ViewCount
	}
	if !f.Filter.Accepts(duration, views) {
		utils.LogDebug("Rejected %s (%ds, %d views)", v.Id, duration, views)
		return SourceVideo{}, false
	}

	candidate := SourceVideo{
		ID:        v.Id,
		URL:       WatchURL(v.Id),
		Duration:  float64(duration),
		ViewCount: int64(views),
		Kind:      KindSearch,
	}
	if v.Snippet != nil {
		candidate.Title = v.Snippet.Title
		candidate.Channel = v.Snippet.ChannelTitle
	}
	return candidate, true
}
