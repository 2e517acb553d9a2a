package render

import (
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/media"
)

// Options configures the filter passes.
type Options struct {
	Width      int     `json:"width" yaml:"width"`
	Height     int     `json:"height" yaml:"height"`
	BlurSigma  float64 `json:"blurSigma" yaml:"blurSigma"`
	Saturation float64 `json:"saturation" yaml:"saturation"`

	// Colour grade applied after framing.
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Brightness float64 `json:"brightness" yaml:"brightness"`
	GradeSat   float64 `json:"gradeSaturation" yaml:"gradeSaturation"`

	CRF          int    `json:"crf" yaml:"crf"`
	Preset       string `json:"preset" yaml:"preset"`
	AudioBitrate string `json:"audioBitrate" yaml:"audioBitrate"`

	Captions     bool   `json:"captions" yaml:"captions"`
	CaptionStyle string `json:"captionStyle" yaml:"captionStyle"`

	// CreditText is a template; "{channel}" is replaced by the source channel.
	CreditText  string `json:"creditText" yaml:"creditText"`
	CreditImage string `json:"creditImage" yaml:"creditImage"`
	FontFile    string `json:"fontFile" yaml:"fontFile"`
	FontSize    int    `json:"fontSize" yaml:"fontSize"`

	MusicFile   string  `json:"musicFile" yaml:"musicFile"`
	MusicVolume float64 `json:"musicVolume" yaml:"musicVolume"`

	// KeepTemp leaves the per-clip stage files on disk.
	KeepTemp bool `json:"keepTemp" yaml:"keepTemp"`
}

// DefaultCaptionStyle is the ASS override used when burning captions.
const DefaultCaptionStyle = "FontName=Arial,FontSize=16,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=2,Alignment=2,MarginV=60"

// DefaultOptions returns 1080x1920 output with the blurred-background look.
func DefaultOptions() Options {
	return Options{
		Width:        1080,
		Height:       1920,
		BlurSigma:    20,
		Saturation:   1.2,
		Contrast:     1.1,
		Brightness:   0.03,
		GradeSat:     1.15,
		CRF:          23,
		Preset:       "medium",
		AudioBitrate: "192k",
		Captions:     true,
		CaptionStyle: DefaultCaptionStyle,
		CreditText:   "Credit: {channel}",
		FontSize:     42,
		MusicVolume:  0.15,
	}
}

// Validate checks the numeric options.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", o.Width, o.Height)
	}
	if o.CRF < 0 || o.CRF > 51 {
		return fmt.Errorf("crf must be within [0, 51], got %d", o.CRF)
	}
	if o.MusicVolume < 0 {
		return fmt.Errorf("music volume must be non-negative, got %v", o.MusicVolume)
	}
	return nil
}

func (o Options) encoding() media.Encoding {
	enc := media.DefaultEncoding()
	if o.CRF > 0 {
		enc.CRF = o.CRF
	}
	if o.Preset != "" {
		enc.Preset = o.Preset
	}
	if o.AudioBitrate != "" {
		enc.AudioBitrate = o.AudioBitrate
	}
	return enc
}
