package discovery

import (
	"context"
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// ChannelLister lists the entries of a channel, most viewed first.
type ChannelLister interface {
	ListChannel(ctx context.Context, channelURL string) ([]SourceVideo, error)
}

// ChannelFinder scans a fixed list of channels. Offset picks the channel the
// scan starts from so consecutive runs rotate through the list.
type ChannelFinder struct {
	Lister   ChannelLister
	Channels []string
	Offset   int
}

// Find returns the unseen entries of the first channel, in rotation order,
// that still has any.
func (f *ChannelFinder) Find(ctx context.Context, seen SeenFunc) ([]SourceVideo, error) {
	if len(f.Channels) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}

	start := f.Offset % len(f.Channels)
	if start < 0 {
		start += len(f.Channels)
	}

	for i := range f.Channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		channel := f.Channels[(start+i)%len(f.Channels)]
		utils.LogInfo("Scanning channel %s", channel)

		entries, err := f.Lister.ListChannel(ctx, channel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			utils.LogWarning("Failed to list %s: %v", channel, err)
			continue
		}

		var fresh []SourceVideo
		for _, e := range entries {
			if seen != nil && seen(e.ID) {
				utils.LogDebug("Already processed %s", e.ID)
				continue
			}
			fresh = append(fresh, e)
		}
		if len(fresh) > 0 {
			utils.LogVerbose("Found %d new videos on %s", len(fresh), channel)
			return fresh, nil
		}
		utils.LogVerbose("Nothing new on %s", channel)
	}

	return nil, nil
}
