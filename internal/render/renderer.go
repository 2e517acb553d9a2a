// Package render turns a scored segment into a finished vertical clip
// through a fixed, linear sequence of filter passes.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

var (
	// ErrExtractFailed means the window could not be cut from the source.
	ErrExtractFailed = errors.New("extract stage failed")
	// ErrNoRenderableSegment means every candidate's extract stage failed.
	ErrNoRenderableSegment = errors.New("no renderable segment")
)

// Job describes one clip to render.
type Job struct {
	Source     string
	SourceID   string
	Channel    string
	Segment    scoring.Segment
	Transcript *transcribe.Transcript
	// WorkDir holds the per-stage temporary files.
	WorkDir string
	Output  string
}

// Clip is a finished render.
type Clip struct {
	SourceVideoID string          `json:"source_video_id"`
	StartTime     float64         `json:"start_time"`
	Duration      float64         `json:"duration"`
	OutputPath    string          `json:"output_path"`
	ViralScore    float64         `json:"viral_score"`
	Segment       scoring.Segment `json:"segment"`
	Stages        []StageResult   `json:"stages"`
}

// Degraded reports whether any stage fell back to its input.
func (c Clip) Degraded() bool {
	for _, s := range c.Stages {
		if s.Status == Degraded {
			return true
		}
	}
	return false
}

// Renderer runs the stage pipeline over an Extractor.
type Renderer struct {
	Extractor media.Extractor
	Options   Options
}

// New returns a renderer with the given options.
func New(extractor media.Extractor, opts Options) *Renderer {
	return &Renderer{Extractor: extractor, Options: opts}
}

type pipeline struct {
	r       *Renderer
	job     Job
	dir     string
	current string
	results []StageResult
}

// Render produces job.Output. Stage failures after extract degrade by
// carrying the previous file forward. The output path only appears once the
// final stage has completed.
func (r *Renderer) Render(ctx context.Context, job Job) (Clip, error) {
	if err := r.Options.Validate(); err != nil {
		return Clip{}, err
	}
	if job.Output == "" {
		return Clip{}, fmt.Errorf("render job has no output path")
	}
	workDir := job.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(job.Output)
	}
	if err := utils.EnsureDir(workDir); err != nil {
		return Clip{}, err
	}

	dir, err := os.MkdirTemp(workDir, "."+strings.TrimSuffix(filepath.Base(job.Output), filepath.Ext(job.Output))+"-stages-")
	if err != nil {
		return Clip{}, fmt.Errorf("failed to create stage directory: %w", err)
	}
	if !r.Options.KeepTemp {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				utils.LogWarning("Failed to remove stage directory %s: %v", dir, err)
			}
		}()
	}

	p := &pipeline{r: r, job: job, dir: dir}
	clip := Clip{
		SourceVideoID: job.SourceID,
		StartTime:     job.Segment.Start,
		Duration:      job.Segment.Duration(),
		ViralScore:    job.Segment.ViralScore,
		Segment:       job.Segment,
	}

	if err := p.extract(ctx); err != nil {
		clip.Stages = p.results
		return clip, err
	}

	p.run(ctx, StageFrame, p.frame)
	p.run(ctx, StageGrade, p.grade)
	p.run(ctx, StageCaptions, p.captions)
	p.run(ctx, StageCredit, p.credit)
	p.run(ctx, StageMusic, p.music)

	if ctx.Err() != nil {
		clip.Stages = p.results
		return clip, ctx.Err()
	}
	if err := p.finish(); err != nil {
		clip.Stages = p.results
		return clip, err
	}

	clip.OutputPath = job.Output
	clip.Stages = p.results
	return clip, nil
}

func (p *pipeline) stagePath(n int, name string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%02d_%s.mp4", n, name))
}

func (p *pipeline) extract(ctx context.Context) error {
	seg := p.job.Segment
	out := p.stagePath(1, StageExtract)
	utils.LogVerbose("Extracting %.1fs-%.1fs from %s", seg.Start, seg.End, p.job.Source)

	path, err := p.r.Extractor.ExtractWindow(ctx, p.job.Source, seg.Start, seg.Duration(), nil, out)
	if err == nil && !utils.FileExists(path) {
		err = fmt.Errorf("extractor reported success but %s is missing", path)
	}
	if err != nil {
		p.results = append(p.results, newResult(StageExtract, Failed, "", err))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}

	p.current = path
	p.results = append(p.results, newResult(StageExtract, Success, path, nil))
	return nil
}

// stageFunc writes its output to out. skip=true means it had nothing to do.
type stageFunc func(ctx context.Context, in, out string) (skip bool, err error)

func (p *pipeline) run(ctx context.Context, name string, fn stageFunc) {
	if ctx.Err() != nil {
		p.results = append(p.results, newResult(name, Failed, "", ctx.Err()))
		return
	}

	out := p.stagePath(len(p.results)+1, name)
	skip, err := fn(ctx, p.current, out)
	if err == nil && !skip && !utils.FileExists(out) {
		err = fmt.Errorf("stage produced no output")
	}

	switch {
	case skip && err == nil:
		utils.LogVerbose("Stage %s skipped", name)
		p.results = append(p.results, newResult(name, Skipped, p.current, nil))
	case err == nil:
		utils.LogVerbose("Stage %s done", name)
		p.current = out
		p.results = append(p.results, newResult(name, Success, out, nil))
	default:
		utils.LogWarning("Stage %s failed, keeping previous output: %v", name, err)
		if copyErr := utils.CopyFile(p.current, out); copyErr != nil {
			// The previous file is still intact; keep pointing at it.
			utils.LogWarning("Could not copy %s forward, reusing it in place: %v", filepath.Base(p.current), copyErr)
			out = p.current
		}
		p.current = out
		p.results = append(p.results, newResult(name, Degraded, out, err))
	}
}

func (p *pipeline) frame(ctx context.Context, in, out string) (bool, error) {
	o := p.r.Options
	return false, p.r.Extractor.Transform(ctx, media.Pass{
		Inputs:        []string{in},
		FilterComplex: media.BlurredBackground(o.Width, o.Height, o.BlurSigma, o.Saturation),
		Maps:          []string{"[v]", "0:a?"},
		CopyAudio:     true,
		Output:        out,
		Encoding:      o.encoding(),
	})
}

func (p *pipeline) grade(ctx context.Context, in, out string) (bool, error) {
	o := p.r.Options
	filter := media.NewFilterBuilder().Equalize(o.Contrast, o.Brightness, o.GradeSat).Build()
	if filter == "" {
		return true, nil
	}
	return false, p.r.Extractor.Transform(ctx, media.Pass{
		Inputs:      []string{in},
		VideoFilter: filter,
		CopyAudio:   true,
		Output:      out,
		Encoding:    o.encoding(),
	})
}

func (p *pipeline) captions(ctx context.Context, in, out string) (bool, error) {
	o := p.r.Options
	if !o.Captions || p.job.Transcript == nil {
		return true, nil
	}

	srt := strings.TrimSuffix(out, filepath.Ext(out)) + ".srt"
	cues, err := transcribe.WriteSRTFile(srt, p.job.Transcript, p.job.Segment.Start, p.job.Segment.End)
	if err != nil {
		return false, err
	}
	if cues == 0 {
		return true, nil
	}

	return false, p.r.Extractor.Transform(ctx, media.Pass{
		Inputs:      []string{in},
		VideoFilter: media.Subtitles(srt, o.CaptionStyle),
		CopyAudio:   true,
		Output:      out,
		Encoding:    o.encoding(),
	})
}

func (p *pipeline) credit(ctx context.Context, in, out string) (bool, error) {
	o := p.r.Options
	if o.CreditImage != "" {
		if !utils.FileExists(o.CreditImage) {
			return false, fmt.Errorf("credit image not found: %s", o.CreditImage)
		}
		return false, p.r.Extractor.Transform(ctx, media.Pass{
			Inputs:        []string{in, o.CreditImage},
			FilterComplex: media.ImageOverlay(800, 150),
			Maps:          []string{"[v]", "0:a?"},
			CopyAudio:     true,
			Output:        out,
			Encoding:      o.encoding(),
		})
	}

	text := CreditLine(o.CreditText, p.job.Channel)
	if text == "" {
		return true, nil
	}
	return false, p.r.Extractor.Transform(ctx, media.Pass{
		Inputs:      []string{in},
		VideoFilter: media.DrawText(text, o.FontFile, o.FontSize, "h-th-220"),
		CopyAudio:   true,
		Output:      out,
		Encoding:    o.encoding(),
	})
}

func (p *pipeline) music(ctx context.Context, in, out string) (bool, error) {
	o := p.r.Options
	if o.MusicFile == "" {
		return true, nil
	}
	if !utils.FileExists(o.MusicFile) {
		return false, fmt.Errorf("music file not found: %s", o.MusicFile)
	}
	return false, p.r.Extractor.Transform(ctx, media.Pass{
		Inputs:        []string{in, o.MusicFile},
		FilterComplex: media.MusicMix(o.MusicVolume),
		Maps:          []string{"0:v", "[a]"},
		Output:        out,
		Encoding:      o.encoding(),
	})
}

// finish copies the last stage output next to the destination and renames it
// into place.
func (p *pipeline) finish() error {
	if err := utils.EnsureDir(filepath.Dir(p.job.Output)); err != nil {
		p.results = append(p.results, newResult(StageFinal, Failed, "", err))
		return err
	}
	part := p.job.Output + ".part"
	if err := utils.CopyFile(p.current, part); err != nil {
		_ = os.Remove(part)
		p.results = append(p.results, newResult(StageFinal, Failed, "", err))
		return fmt.Errorf("failed to write final clip: %w", err)
	}
	if err := os.Rename(part, p.job.Output); err != nil {
		_ = os.Remove(part)
		p.results = append(p.results, newResult(StageFinal, Failed, "", err))
		return fmt.Errorf("failed to move final clip into place: %w", err)
	}
	p.results = append(p.results, newResult(StageFinal, Success, p.job.Output, nil))
	return nil
}

// CreditLine expands the credit template. An empty channel drops templates
// that reference it.
func CreditLine(template, channel string) string {
	if template == "" {
		return ""
	}
	if strings.Contains(template, "{channel}") {
		if channel == "" {
			return ""
		}
		return strings.ReplaceAll(template, "{channel}", channel)
	}
	return template
}
