package scoring

import "sort"

// Segment is a scored candidate window. Segments are not modified after
// scoring.
type Segment struct {
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	AudioScore     float64  `json:"audio_score"`
	KeywordScore   float64  `json:"keyword_score"`
	SentimentScore float64  `json:"sentiment_score"`
	SceneScore     float64  `json:"scene_score"`
	ViralScore     float64  `json:"viral_score"`
	Text           string   `json:"extracted_text,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	// Bonus reports whether the positional multiplier was applied.
	Bonus bool `json:"position_bonus"`
}

// Features returns the segment's raw feature scores.
func (s Segment) Features() Features {
	return Features{
		Audio:     s.AudioScore,
		Keyword:   s.KeywordScore,
		Sentiment: s.SentimentScore,
		Scene:     s.SceneScore,
	}
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Overlaps reports whether the two segments share any time.
func (s Segment) Overlaps(o Segment) bool {
	return s.Start < o.End && o.Start < s.End
}

// OverlapsAny reports whether s overlaps any of others.
func (s Segment) OverlapsAny(others []Segment) bool {
	for _, o := range others {
		if s.Overlaps(o) {
			return true
		}
	}
	return false
}

// Combine computes the viral score of a window starting at start in a source
// of the given total duration. bonus reports whether the positional
// multiplier applied.
func (w Weights) Combine(f Features, start, duration float64) (score float64, bonus bool) {
	score = f.Audio*w.Audio +
		f.Keyword*w.Keyword +
		f.Sentiment*w.Sentiment +
		f.Scene*w.Scene

	if duration > 0 {
		ratio := start / duration
		if ratio >= w.PositionBonusMin && ratio <= w.PositionBonusMax {
			score *= w.PositionBonusFactor
			bonus = true
		}
	}
	return score, bonus
}

// Rank sorts segments by descending viral score. Equal scores keep their
// input order, so chronological input yields chronological ties.
func Rank(segments []Segment) []Segment {
	ranked := make([]Segment, len(segments))
	copy(ranked, segments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ViralScore > ranked[j].ViralScore
	})
	return ranked
}

// Top returns at most n of the highest ranked segments, skipping any that
// overlap a better one.
func Top(ranked []Segment, n int) []Segment {
	picked, _ := Select(ranked, n, func(int, Segment) (bool, error) {
		return true, nil
	})
	return picked
}

// Select walks ranked segments in order and offers each one that does not
// overlap an accepted segment to try, until n are accepted. try reports
// whether it accepted the segment; an error stops the walk and is returned
// with the segments accepted so far.
func Select(ranked []Segment, n int, try func(i int, s Segment) (bool, error)) ([]Segment, error) {
	var picked []Segment
	for i, s := range ranked {
		if len(picked) >= n {
			break
		}
		if s.OverlapsAny(picked) {
			continue
		}
		ok, err := try(i, s)
		if err != nil {
			return picked, err
		}
		if ok {
			picked = append(picked, s)
		}
	}
	return picked, nil
}
