package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// FFmpeg implements Transcoder by running the ffmpeg binary.
type FFmpeg struct {
	// Binary defaults to "ffmpeg" resolved from PATH.
	Binary string
}

// NewFFmpeg returns an FFmpeg transcoder using the binary on PATH.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{Binary: "ffmpeg"}
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

// run executes ffmpeg and returns everything written to stderr.
func (f *FFmpeg) run(ctx context.Context, args ...string) (string, error) {
	utils.LogDebug("%s %s", f.binary(), strings.Join(args, " "))

	cmd := execCommand(ctx, f.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// Probe returns the duration of path. When the diagnostics carry no
// duration the FallbackDuration is returned without an error; only a
// cancelled context is reported as a failure.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	// Without an output file ffmpeg always exits non-zero; the banner is
	// all we need.
	output, _ := f.run(ctx, "-hide_banner", "-i", path)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if seconds, ok := ParseDuration(output); ok {
		utils.LogVerbose("Probed %s: %.2fs", path, seconds)
		return seconds, nil
	}

	utils.LogWarning("Could not read duration of %s, assuming %.0fs", path, FallbackDuration)
	return FallbackDuration, nil
}

// Loudness runs volumedetect over the window.
func (f *FFmpeg) Loudness(ctx context.Context, path string, start, length float64) (Loudness, error) {
	output, err := f.run(ctx,
		"-hide_banner", "-nostats",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", path,
		"-vn",
		"-af", "volumedetect",
		"-f", "null", "-",
	)
	if ctx.Err() != nil {
		return Loudness{}, ctx.Err()
	}

	stats, ok := ParseLoudness(output)
	if !ok {
		if err != nil {
			return Loudness{}, fmt.Errorf("volume analysis failed: %w", err)
		}
		return Loudness{}, fmt.Errorf("volume analysis produced no loudness data")
	}
	return stats, nil
}

// SceneChanges counts scene cuts in the window at the given threshold.
func (f *FFmpeg) SceneChanges(ctx context.Context, path string, start, length, threshold float64) (int, error) {
	output, err := f.run(ctx,
		"-hide_banner", "-nostats",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", path,
		"-an",
		"-vf", fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64)),
		"-f", "null", "-",
	)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err != nil && !tolerable(err, output) {
		return 0, fmt.Errorf("scene detection failed: %w", err)
	}

	return CountSceneMarkers(output), nil
}

// ExtractWindow cuts [start, start+length) out of path into output.
func (f *FFmpeg) ExtractWindow(ctx context.Context, path string, start, length float64, filters []string, output string) (string, error) {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-i", path,
		"-t", formatSeconds(length),
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	args = append(args, encodingArgs(DefaultEncoding())...)
	args = append(args, "-movflags", "+faststart", output)

	if stderr, err := f.run(ctx, args...); err != nil {
		return "", fmt.Errorf("extract %.2fs+%.2fs failed: %w: %s", start, length, err, lastLine(stderr))
	}
	return output, nil
}

// Transform runs one filter pass described by pass.
func (f *FFmpeg) Transform(ctx context.Context, pass Pass) error {
	if len(pass.Inputs) == 0 {
		return fmt.Errorf("transform requires at least one input")
	}
	if pass.Output == "" {
		return fmt.Errorf("transform requires an output path")
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range pass.Inputs {
		args = append(args, "-i", in)
	}

	switch {
	case pass.FilterComplex != "":
		args = append(args, "-filter_complex", pass.FilterComplex)
		for _, m := range pass.Maps {
			args = append(args, "-map", m)
		}
	case pass.VideoFilter != "":
		args = append(args, "-vf", pass.VideoFilter)
	}

	enc := pass.Encoding
	if enc.VideoCodec == "" {
		enc = DefaultEncoding()
	}
	if pass.CopyAudio {
		enc.AudioCodec = "copy"
		enc.AudioBitrate = ""
	}
	args = append(args, encodingArgs(enc)...)
	if pass.Shortest {
		args = append(args, "-shortest")
	}
	args = append(args, "-movflags", "+faststart", pass.Output)

	if stderr, err := f.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg pass failed: %w: %s", err, lastLine(stderr))
	}
	return nil
}

func encodingArgs(enc Encoding) []string {
	args := []string{"-c:v", enc.VideoCodec}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	if enc.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(enc.CRF))
	}
	if enc.AudioCodec != "" {
		args = append(args, "-c:a", enc.AudioCodec)
	}
	if enc.AudioBitrate != "" {
		args = append(args, "-b:a", enc.AudioBitrate)
	}
	return args
}

// tolerable reports whether a non-zero exit still left usable diagnostics.
func tolerable(err error, output string) bool {
	if err == nil {
		return true
	}
	return strings.Contains(output, "Conversion failed") ||
		strings.Contains(output, "Output file is empty")
}

func formatSeconds(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
