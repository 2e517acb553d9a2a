// Package segment divides a source timeline into candidate clip windows.
package segment

import (
	"fmt"
	"math"
)

// Strategy selects how candidate windows are laid out over the usable range.
type Strategy string

const (
	// EqualSegments splits the usable range into NumClips buckets and picks
	// one window a third of the way into each bucket.
	EqualSegments Strategy = "equal-segments"
	// FixedStride advances a window by Stride seconds across the usable range.
	FixedStride Strategy = "fixed-stride"
)

// Options configures the partitioner.
type Options struct {
	Strategy   Strategy `json:"strategy" yaml:"strategy"`
	ClipLength float64  `json:"clipLength" yaml:"clipLength"`
	NumClips   int      `json:"numClips" yaml:"numClips"`

	// HeadFraction and TailFraction exclude intro/outro material. When the
	// matching *Seconds field is positive it is used instead.
	HeadFraction float64 `json:"headFraction" yaml:"headFraction"`
	TailFraction float64 `json:"tailFraction" yaml:"tailFraction"`
	HeadSeconds  float64 `json:"headSeconds,omitempty" yaml:"headSeconds,omitempty"`
	TailSeconds  float64 `json:"tailSeconds,omitempty" yaml:"tailSeconds,omitempty"`

	Stride float64 `json:"stride" yaml:"stride"`

	// FallbackAnchor positions the single window used when the usable range
	// cannot hold a clip, as a fraction of the total duration.
	FallbackAnchor float64 `json:"fallbackAnchor" yaml:"fallbackAnchor"`
}

// DefaultOptions returns the partitioner defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:       FixedStride,
		ClipLength:     50,
		NumClips:       3,
		HeadFraction:   0.1,
		TailFraction:   0.1,
		Stride:         5,
		FallbackAnchor: 0.3,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	switch o.Strategy {
	case EqualSegments, FixedStride:
	default:
		return fmt.Errorf("unknown partition strategy %q", o.Strategy)
	}
	if o.ClipLength <= 0 {
		return fmt.Errorf("clip length must be positive, got %v", o.ClipLength)
	}
	if o.Strategy == EqualSegments && o.NumClips <= 0 {
		return fmt.Errorf("numClips must be positive, got %d", o.NumClips)
	}
	if o.Strategy == FixedStride && o.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %v", o.Stride)
	}
	if o.HeadFraction < 0 || o.TailFraction < 0 || o.HeadFraction+o.TailFraction >= 1 {
		return fmt.Errorf("head/tail fractions must be non-negative and sum below 1")
	}
	if o.HeadSeconds < 0 || o.TailSeconds < 0 {
		return fmt.Errorf("head/tail seconds must be non-negative")
	}
	if o.FallbackAnchor < 0 || o.FallbackAnchor > 1 {
		return fmt.Errorf("fallback anchor must be within [0, 1], got %v", o.FallbackAnchor)
	}
	return nil
}

// Window is a half-open time range [Start, End) in seconds.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start.
func (w Window) Length() float64 {
	return w.End - w.Start
}

// UsableRange returns the part of the timeline left after removing the head
// and tail.
func (o Options) UsableRange(duration float64) (start, end float64) {
	start = duration * o.HeadFraction
	if o.HeadSeconds > 0 {
		start = o.HeadSeconds
	}
	end = duration * (1 - o.TailFraction)
	if o.TailSeconds > 0 {
		end = duration - o.TailSeconds
	}
	return start, end
}

// Partition lays candidate windows over a timeline of the given duration.
// Every window satisfies 0 <= Start < End <= duration. When the usable range
// is shorter than one clip a single window anchored at FallbackAnchor is
// returned instead.
func Partition(duration float64, opts Options) ([]Window, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("invalid duration %v", duration)
	}

	usableStart, usableEnd := opts.UsableRange(duration)
	if usableEnd-usableStart < opts.ClipLength {
		return []Window{fallbackWindow(duration, opts)}, nil
	}

	switch opts.Strategy {
	case EqualSegments:
		return equalSegments(duration, usableStart, usableEnd, opts), nil
	default:
		return fixedStride(usableStart, usableEnd, opts), nil
	}
}

// equalSegments buckets the range of start times from the usable start to
// the end of the source. When the last pick would cross the tail, or the tail
// is given in seconds, the buckets cover only the starts that keep the clip
// before the tail. Windows that land on the same start are emitted once.
func equalSegments(duration, usableStart, usableEnd float64, opts Options) []Window {
	n := float64(opts.NumClips)
	maxStart := usableEnd - opts.ClipLength
	bucket := (duration - opts.ClipLength - usableStart) / n
	if opts.TailSeconds > 0 || usableStart+bucket*(n-1)+bucket/3 > maxStart {
		bucket = (maxStart - usableStart) / n
	}

	windows := make([]Window, 0, opts.NumClips)
	for i := 0; i < opts.NumClips; i++ {
		start := usableStart + bucket*float64(i) + bucket/3
		start = clamp(start, usableStart, maxStart)
		if len(windows) > 0 && start-windows[len(windows)-1].Start < 1e-9 {
			continue
		}
		windows = append(windows, Window{Start: start, End: start + opts.ClipLength})
	}
	return windows
}

func fixedStride(usableStart, usableEnd float64, opts Options) []Window {
	var windows []Window
	// Step by index so rounding error does not accumulate over long sources.
	for i := 0; ; i++ {
		start := usableStart + float64(i)*opts.Stride
		if start+opts.ClipLength > usableEnd+1e-9 {
			break
		}
		windows = append(windows, Window{Start: start, End: start + opts.ClipLength})
	}
	return windows
}

func fallbackWindow(duration float64, opts Options) Window {
	start := clamp(duration*opts.FallbackAnchor, 0, math.Max(0, duration-opts.ClipLength))
	return Window{Start: start, End: math.Min(start+opts.ClipLength, duration)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
