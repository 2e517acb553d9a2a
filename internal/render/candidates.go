package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// OutputNamer returns the output path for the n-th clip (0-based) of a run.
type OutputNamer func(n int, seg scoring.Segment) string

// RenderBest walks ranked candidates and renders up to count clips. A
// candidate whose extract stage fails is discarded and the next one tried.
// Candidates overlapping an already rendered clip are skipped.
func (r *Renderer) RenderBest(ctx context.Context, base Job, ranked []scoring.Segment, count int, name OutputNamer) ([]Clip, error) {
	if count <= 0 {
		count = 1
	}

	var clips []Clip
	_, err := scoring.Select(ranked, count, func(i int, seg scoring.Segment) (bool, error) {
		job := base
		job.Segment = seg
		job.Output = name(len(clips), seg)

		utils.LogInfo("Rendering candidate %d (%.1fs-%.1fs, score %.2f)", i+1, seg.Start, seg.End, seg.ViralScore)
		clip, err := r.Render(ctx, job)
		if err != nil {
			if errors.Is(err, ErrExtractFailed) {
				utils.LogWarning("Discarding candidate at %.1fs: %v", seg.Start, err)
				return false, nil
			}
			return false, err
		}

		if clip.Degraded() {
			utils.LogWarning("Rendered %s with degraded stages", clip.OutputPath)
		} else {
			utils.LogSuccess("Rendered %s", clip.OutputPath)
		}
		clips = append(clips, clip)
		return true, nil
	})
	if err != nil {
		return clips, err
	}

	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: tried %d candidates", ErrNoRenderableSegment, len(ranked))
	}
	return clips, nil
}
