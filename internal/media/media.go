// Package media wraps the external transcoder behind small capability
// interfaces so scoring and rendering never build command lines themselves.
package media

import "context"

const (
	// FallbackDuration is returned by Probe when the transcoder's
	// diagnostics carry no recognizable duration.
	FallbackDuration = 600.0

	// DefaultSceneThreshold is the scene-change sensitivity used for scoring.
	DefaultSceneThreshold = 0.3
)

// Prober obtains the total duration of a media file in seconds.
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Analyzer reads loudness and scene-change diagnostics for a time window.
type Analyzer interface {
	Loudness(ctx context.Context, path string, start, length float64) (Loudness, error)
	SceneChanges(ctx context.Context, path string, start, length, threshold float64) (int, error)
}

// Extractor cuts windows out of a source and runs filter passes over files.
type Extractor interface {
	// ExtractWindow writes [start, start+length) of path to output, applying
	// the optional video filter chain, and returns the output path.
	ExtractWindow(ctx context.Context, path string, start, length float64, filters []string, output string) (string, error)
	// Transform runs a single filter pass.
	Transform(ctx context.Context, pass Pass) error
}

// Transcoder is the full set of capabilities the pipeline needs.
type Transcoder interface {
	Prober
	Analyzer
	Extractor
}

// Loudness holds volumedetect output in dB (both values are usually negative).
type Loudness struct {
	MeanVolume float64
	MaxVolume  float64
}

// Encoding controls the codecs used when a pass re-encodes its output.
type Encoding struct {
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// DefaultEncoding returns H.264/AAC settings suitable for Shorts uploads.
func DefaultEncoding() Encoding {
	return Encoding{
		VideoCodec:   "libx264",
		Preset:       "medium",
		CRF:          23,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
	}
}

// Pass describes one filter invocation over one or more input files.
type Pass struct {
	Inputs []string
	// VideoFilter is a simple -vf chain. Ignored when FilterComplex is set.
	VideoFilter   string
	FilterComplex string
	// Maps are -map selectors, used with FilterComplex.
	Maps []string
	// CopyAudio keeps the first input's audio stream untouched.
	CopyAudio bool
	// Shortest ends the output with the shortest input stream.
	Shortest bool
	Output   string
	Encoding Encoding
}
