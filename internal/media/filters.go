package media

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// FilterBuilder assembles a comma separated ffmpeg filter chain.
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates an empty chain.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{filters: make([]string, 0)}
}

// Scale adds a scale filter. Use -2 for an aspect-preserving even dimension.
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width == 0 || height == 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Cover scales up until the frame covers width x height, then crops the centre.
func (fb *FilterBuilder) Cover(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", width, height),
		fmt.Sprintf("crop=%d:%d", width, height),
	)
	return fb
}

// Blur adds a gaussian blur.
func (fb *FilterBuilder) Blur(sigma float64) *FilterBuilder {
	if sigma <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "gblur=sigma="+formatFloat(sigma))
	return fb
}

// Equalize adds an eq filter. Zero values are left at ffmpeg's defaults.
func (fb *FilterBuilder) Equalize(contrast, brightness, saturation float64) *FilterBuilder {
	var parts []string
	if contrast != 0 {
		parts = append(parts, "contrast="+formatFloat(contrast))
	}
	if brightness != 0 {
		parts = append(parts, "brightness="+formatFloat(brightness))
	}
	if saturation != 0 {
		parts = append(parts, "saturation="+formatFloat(saturation))
	}
	if len(parts) == 0 {
		return fb
	}
	fb.filters = append(fb.filters, "eq="+strings.Join(parts, ":"))
	return fb
}

// Vignette darkens the frame edges at the given angle expression (e.g. "PI/4").
func (fb *FilterBuilder) Vignette(angle string) *FilterBuilder {
	if angle == "" {
		return fb
	}
	fb.filters = append(fb.filters, "vignette="+angle)
	return fb
}

// Custom adds a raw filter.
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	if filter != "" {
		fb.filters = append(fb.filters, filter)
	}
	return fb
}

// Build returns the chain joined with commas.
func (fb *FilterBuilder) Build() string {
	return strings.Join(fb.filters, ",")
}

// BlurredBackground returns a filter graph that places the input, fitted to
// width, over a blurred and saturated cover-cropped copy of itself. The
// composite is exposed as [v].
func BlurredBackground(width, height int, sigma, saturation float64) string {
	bg := NewFilterBuilder().
		Cover(width, height).
		Blur(sigma).
		Equalize(0, 0, saturation).
		Build()
	fg := NewFilterBuilder().Scale(width, -2).Build()
	composite := NewFilterBuilder().
		Custom("overlay=(W-w)/2:(H-h)/2").
		Vignette("PI/4").
		Custom("setsar=1").
		Build()

	return fmt.Sprintf("[0:v]split=2[bgsrc][fgsrc];[bgsrc]%s[bg];[fgsrc]%s[fg];[bg][fg]%s[v]", bg, fg, composite)
}

// Subtitles burns an SRT file in with an ASS force_style override.
func Subtitles(path, style string) string {
	filter := "subtitles=" + EscapeFilterPath(path)
	if style != "" {
		filter += ":force_style='" + style + "'"
	}
	return filter
}

// DrawText renders a single line of text centred horizontally at y.
func DrawText(text, fontFile string, fontSize int, y string) string {
	parts := []string{"drawtext=text='" + EscapeDrawText(text) + "'"}
	if fontFile != "" {
		parts = append(parts, "fontfile="+EscapeFilterPath(fontFile))
	}
	parts = append(parts,
		"fontsize="+strconv.Itoa(fontSize),
		"fontcolor=white",
		"borderw=3",
		"bordercolor=black",
		"x=(w-text_w)/2",
		"y="+y,
	)
	return strings.Join(parts, ":")
}

// ImageOverlay scales the second input to width and places it centred at y.
func ImageOverlay(width, y int) string {
	return fmt.Sprintf("[1:v]scale=%d:-1[ovr];[0:v][ovr]overlay=(W-w)/2:%d[v]", width, y)
}

// MusicMix mixes the second input under the first at volume, trimmed to the
// first input's length.
func MusicMix(volume float64) string {
	return fmt.Sprintf("[1:a]volume=%s[bgm];[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=2[a]", formatFloat(volume))
}

// EscapeFilterPath escapes a file path for use inside a filter argument.
func EscapeFilterPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}

// EscapeDrawText escapes characters drawtext treats specially.
func EscapeDrawText(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"'", `\'`,
		":", `\:`,
		"%", `\%`,
	)
	return r.Replace(text)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
