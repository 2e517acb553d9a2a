package scoring

import (
	"context"
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/segment"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// TextSource returns the transcript text spoken in [start, end).
type TextSource interface {
	TextBetween(start, end float64) string
}

// Scorer extracts features for candidate windows and ranks them.
type Scorer struct {
	Analyzer       media.Analyzer
	Weights        Weights
	Lexicon        Lexicon
	SceneThreshold float64
}

// NewScorer returns a scorer with the default weights and lexicon.
func NewScorer(analyzer media.Analyzer) *Scorer {
	return &Scorer{
		Analyzer:       analyzer,
		Weights:        DefaultWeights(),
		Lexicon:        DefaultLexicon(),
		SceneThreshold: media.DefaultSceneThreshold,
	}
}

// ScoreWindow computes every feature for one window. A failed diagnostic
// leaves its feature at zero; only context cancellation is returned.
func (s *Scorer) ScoreWindow(ctx context.Context, path string, duration float64, w segment.Window, text TextSource) (Segment, error) {
	seg := Segment{Start: w.Start, End: w.End}
	length := w.Length()

	loudness, err := s.Analyzer.Loudness(ctx, path, w.Start, length)
	if err != nil {
		if ctx.Err() != nil {
			return Segment{}, ctx.Err()
		}
		utils.LogVerbose("Audio analysis failed at %.1fs: %v", w.Start, err)
	} else {
		seg.AudioScore = AudioScore(loudness)
	}

	threshold := s.SceneThreshold
	if threshold <= 0 {
		threshold = media.DefaultSceneThreshold
	}
	scenes, err := s.Analyzer.SceneChanges(ctx, path, w.Start, length, threshold)
	if err != nil {
		if ctx.Err() != nil {
			return Segment{}, ctx.Err()
		}
		utils.LogVerbose("Scene detection failed at %.1fs: %v", w.Start, err)
	} else {
		seg.SceneScore = SceneScore(scenes)
	}

	if text != nil {
		seg.Text = text.TextBetween(w.Start, w.End)
		seg.KeywordScore, seg.Keywords = s.Lexicon.KeywordScore(seg.Text)
		seg.SentimentScore = s.Lexicon.SentimentScore(seg.Text)
	}

	seg.ViralScore, seg.Bonus = s.Weights.Combine(seg.Features(), w.Start, duration)
	return seg, nil
}

// Score scores all windows in chronological order and returns them ranked.
// text may be nil when no transcript is available.
func (s *Scorer) Score(ctx context.Context, path string, duration float64, windows []segment.Window, text TextSource) ([]Segment, error) {
	if err := s.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	if text == nil {
		utils.LogVerbose("No transcript available, keyword and sentiment scores will be zero")
	}

	segments := make([]Segment, 0, len(windows))
	for i, w := range windows {
		seg, err := s.ScoreWindow(ctx, path, duration, w, text)
		if err != nil {
			return nil, fmt.Errorf("scoring window %d: %w", i, err)
		}
		utils.LogDebug("Window %.1f-%.1f: audio=%.2f keyword=%.2f sentiment=%.2f scene=%.2f viral=%.2f",
			seg.Start, seg.End, seg.AudioScore, seg.KeywordScore, seg.SentimentScore, seg.SceneScore, seg.ViralScore)
		segments = append(segments, seg)
	}

	return Rank(segments), nil
}
