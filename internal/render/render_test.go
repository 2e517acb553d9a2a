package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor writes small marker files instead of running ffmpeg. Each
// pass appends its stage name to the content of its first input.
type fakeExtractor struct {
	failExtract map[float64]bool
	failStage   map[string]bool
	// blockStage leaves a directory where the failing stage's output would
	// go, so the copy of the previous output cannot be written either.
	blockStage map[string]bool
	passes     []media.Pass
}

func stageOf(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

func (f *fakeExtractor) ExtractWindow(ctx context.Context, path string, start, length float64, filters []string, output string) (string, error) {
	if f.failExtract[start] {
		return "", errors.New("invalid data found when processing input")
	}
	return output, os.WriteFile(output, []byte(fmt.Sprintf("extract@%g", start)), 0644)
}

func (f *fakeExtractor) Transform(ctx context.Context, pass media.Pass) error {
	f.passes = append(f.passes, pass)
	stage := stageOf(pass.Output)
	if f.blockStage[stage] {
		if err := os.MkdirAll(pass.Output, 0755); err != nil {
			return err
		}
	}
	if f.failStage[stage] {
		return fmt.Errorf("%s pass exited with status 1", stage)
	}
	in, err := os.ReadFile(pass.Inputs[0])
	if err != nil {
		return err
	}
	return os.WriteFile(pass.Output, append(in, []byte("|"+stage)...), 0644)
}

func plainOptions() Options {
	opts := DefaultOptions()
	opts.CreditText = ""
	return opts
}

func statuses(stages []StageResult) map[string]Status {
	out := make(map[string]Status, len(stages))
	for _, s := range stages {
		out[s.Stage] = s.Status
	}
	return out
}

func TestRender_AllStages(t *testing.T) {
	dir := t.TempDir()
	music := filepath.Join(dir, "bed.mp3")
	require.NoError(t, os.WriteFile(music, []byte("music"), 0644))

	opts := DefaultOptions()
	opts.MusicFile = music

	tr := &transcribe.Transcript{Segments: []transcribe.Segment{{Start: 105, End: 110, Text: "wait for it"}}}
	fake := &fakeExtractor{}
	job := Job{
		Source:     "source.mp4",
		SourceID:   "abc123",
		Channel:    "Some Channel",
		Segment:    scoring.Segment{Start: 100, End: 150, ViralScore: 7.5},
		Transcript: tr,
		WorkDir:    dir,
		Output:     filepath.Join(dir, "clips", "short_1.mp4"),
	}

	clip, err := New(fake, opts).Render(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, job.Output, clip.OutputPath)
	assert.Equal(t, "abc123", clip.SourceVideoID)
	assert.Equal(t, 50.0, clip.Duration)
	assert.False(t, clip.Degraded())

	content, err := os.ReadFile(job.Output)
	require.NoError(t, err)
	assert.Equal(t, "extract@100|frame|grade|captions|credit|music", string(content))

	require.Len(t, fake.passes, 5)
	assert.Contains(t, fake.passes[0].FilterComplex, "gblur=sigma=20")
	assert.Equal(t, "eq=contrast=1.1:brightness=0.03:saturation=1.15", fake.passes[1].VideoFilter)
	assert.Contains(t, fake.passes[2].VideoFilter, "subtitles=")
	assert.Contains(t, fake.passes[3].VideoFilter, `Credit\: Some Channel`)
	assert.Equal(t, []string{"0:v", "[a]"}, fake.passes[4].Maps)

	// stage files are removed once the clip is in place
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), "-stages-"), "leftover %s", e.Name())
	}
}

func TestRender_ColorGradeFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeExtractor{failStage: map[string]bool{StageGrade: true}}
	opts := plainOptions()
	opts.KeepTemp = true

	clip, err := New(fake, opts).Render(context.Background(), Job{
		Source:  "source.mp4",
		Segment: scoring.Segment{Start: 60, End: 110},
		WorkDir: dir,
		Output:  filepath.Join(dir, "short.mp4"),
	})
	require.NoError(t, err)
	assert.True(t, clip.Degraded())

	got := statuses(clip.Stages)
	assert.Equal(t, Success, got[StageExtract])
	assert.Equal(t, Success, got[StageFrame])
	assert.Equal(t, Degraded, got[StageGrade])
	assert.Equal(t, Skipped, got[StageCaptions])
	assert.Equal(t, Skipped, got[StageCredit])
	assert.Equal(t, Skipped, got[StageMusic])
	assert.Equal(t, Success, got[StageFinal])

	var frameOut string
	for _, s := range clip.Stages {
		if s.Stage == StageFrame {
			frameOut = s.Output
		}
	}
	frame, err := os.ReadFile(frameOut)
	require.NoError(t, err)
	final, err := os.ReadFile(clip.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, frame, final)
	assert.Equal(t, "extract@60|frame", string(final))
}

func TestRender_CarryForwardCopyFailure(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeExtractor{
		failStage:  map[string]bool{StageGrade: true},
		blockStage: map[string]bool{StageGrade: true},
	}
	opts := plainOptions()
	opts.KeepTemp = true

	var out bytes.Buffer
	utils.SetLogOutput(&out, &out)
	defer utils.SetLogOutput(nil, nil)

	clip, err := New(fake, opts).Render(context.Background(), Job{
		Source:  "source.mp4",
		Segment: scoring.Segment{Start: 60, End: 110},
		WorkDir: dir,
		Output:  filepath.Join(dir, "short.mp4"),
	})
	require.NoError(t, err)

	var frameOut, gradeOut string
	for _, s := range clip.Stages {
		switch s.Stage {
		case StageFrame:
			frameOut = s.Output
		case StageGrade:
			gradeOut = s.Output
			assert.Equal(t, Degraded, s.Status)
		}
	}
	assert.Equal(t, frameOut, gradeOut)

	final, err := os.ReadFile(clip.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "extract@60|frame", string(final))
	assert.Contains(t, out.String(), "Could not copy")
}

func TestRender_ExtractFailureAborts(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeExtractor{failExtract: map[float64]bool{10: true}}
	out := filepath.Join(dir, "short.mp4")

	clip, err := New(fake, plainOptions()).Render(context.Background(), Job{
		Source:  "source.mp4",
		Segment: scoring.Segment{Start: 10, End: 60},
		WorkDir: dir,
		Output:  out,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractFailed)
	assert.Empty(t, clip.OutputPath)
	assert.NoFileExists(t, out)
	assert.Empty(t, fake.passes)
	require.Len(t, clip.Stages, 1)
	assert.Equal(t, Failed, clip.Stages[0].Status)
}

func TestRender_MissingCreditImageDegrades(t *testing.T) {
	dir := t.TempDir()
	opts := plainOptions()
	opts.CreditImage = filepath.Join(dir, "missing.png")

	clip, err := New(&fakeExtractor{}, opts).Render(context.Background(), Job{
		Source:  "source.mp4",
		Segment: scoring.Segment{Start: 0, End: 50},
		WorkDir: dir,
		Output:  filepath.Join(dir, "short.mp4"),
	})
	require.NoError(t, err)
	assert.Equal(t, Degraded, statuses(clip.Stages)[StageCredit])
}

func TestRenderBest_TriesNextCandidate(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeExtractor{failExtract: map[float64]bool{200: true}}
	ranked := []scoring.Segment{
		{Start: 200, End: 250, ViralScore: 9},
		{Start: 100, End: 150, ViralScore: 8},
		{Start: 120, End: 170, ViralScore: 7},
		{Start: 300, End: 350, ViralScore: 6},
		{Start: 40, End: 90, ViralScore: 5},
	}
	namer := func(n int, seg scoring.Segment) string {
		return filepath.Join(dir, fmt.Sprintf("short_%d.mp4", n+1))
	}

	clips, err := New(fake, plainOptions()).RenderBest(context.Background(), Job{Source: "source.mp4", WorkDir: dir}, ranked, 2, namer)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, 100.0, clips[0].StartTime)
	assert.Equal(t, filepath.Join(dir, "short_1.mp4"), clips[0].OutputPath)
	assert.Equal(t, 300.0, clips[1].StartTime)
	assert.Equal(t, filepath.Join(dir, "short_2.mp4"), clips[1].OutputPath)
}

func TestRenderBest_NothingRenderable(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeExtractor{failExtract: map[float64]bool{0: true, 50: true}}
	ranked := []scoring.Segment{{Start: 0, End: 50}, {Start: 50, End: 100}}

	_, err := New(fake, plainOptions()).RenderBest(context.Background(), Job{Source: "s.mp4", WorkDir: dir}, ranked, 1,
		func(n int, seg scoring.Segment) string { return filepath.Join(dir, "x.mp4") })
	assert.ErrorIs(t, err, ErrNoRenderableSegment)
}

func TestCreditLine(t *testing.T) {
	assert.Equal(t, "Credit: Bob", CreditLine("Credit: {channel}", "Bob"))
	assert.Equal(t, "", CreditLine("Credit: {channel}", ""))
	assert.Equal(t, "Follow for more", CreditLine("Follow for more", ""))
	assert.Equal(t, "", CreditLine("", "Bob"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "degraded", Degraded.String())
	text, err := Skipped.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "skipped", string(text))

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("degraded")))
	assert.Equal(t, Degraded, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
