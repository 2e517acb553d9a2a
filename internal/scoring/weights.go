// Package scoring turns per-window diagnostics and transcript text into a
// ranked list of candidate clip segments.
package scoring

import "fmt"

// Weights is the weight table used by the combiner.
type Weights struct {
	Audio     float64 `json:"audio" yaml:"audio"`
	Keyword   float64 `json:"keyword" yaml:"keyword"`
	Sentiment float64 `json:"sentiment" yaml:"sentiment"`
	Scene     float64 `json:"scene" yaml:"scene"`

	// Windows whose start/duration ratio falls inside
	// [PositionBonusMin, PositionBonusMax] are multiplied by PositionBonusFactor.
	PositionBonusMin    float64 `json:"positionBonusMin" yaml:"positionBonusMin"`
	PositionBonusMax    float64 `json:"positionBonusMax" yaml:"positionBonusMax"`
	PositionBonusFactor float64 `json:"positionBonusFactor" yaml:"positionBonusFactor"`
}

// DefaultWeights returns the standard weight table.
func DefaultWeights() Weights {
	return Weights{
		Audio:               0.25,
		Keyword:             0.30,
		Sentiment:           0.25,
		Scene:               0.20,
		PositionBonusMin:    0.25,
		PositionBonusMax:    0.75,
		PositionBonusFactor: 1.20,
	}
}

// Validate rejects negative weights and inverted bonus ranges.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"audio":     w.Audio,
		"keyword":   w.Keyword,
		"sentiment": w.Sentiment,
		"scene":     w.Scene,
	} {
		if v < 0 {
			return fmt.Errorf("%s weight must be non-negative, got %v", name, v)
		}
	}
	if w.PositionBonusMin > w.PositionBonusMax {
		return fmt.Errorf("position bonus range is inverted: [%v, %v]", w.PositionBonusMin, w.PositionBonusMax)
	}
	if w.PositionBonusFactor < 1 {
		return fmt.Errorf("position bonus factor must be at least 1, got %v", w.PositionBonusFactor)
	}
	return nil
}
