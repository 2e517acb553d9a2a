package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/metadata"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/modules/score"
	rendering "github.com/gnzdotmx/viralshorts/internal/render"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyExtractor writes marker files in place of ffmpeg output.
type copyExtractor struct {
	failExtract map[float64]bool
	extracted   []float64
}

func (c *copyExtractor) ExtractWindow(ctx context.Context, path string, start, length float64, filters []string, output string) (string, error) {
	c.extracted = append(c.extracted, start)
	if c.failExtract[start] {
		return "", errors.New("moov atom not found")
	}
	return output, os.WriteFile(output, []byte(fmt.Sprintf("clip@%g", start)), 0644)
}

func (c *copyExtractor) Transform(ctx context.Context, pass media.Pass) error {
	return utils.CopyFile(pass.Inputs[0], pass.Output)
}

func setupRun(t *testing.T, withCandidate bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "source.mp4"), []byte("video"), 0644))
	require.NoError(t, utils.WriteJSONFile(filepath.Join(dir, score.ScoresFile), score.Report{
		Source:   filepath.Join(dir, "source.mp4"),
		Duration: 400,
		Segments: []scoring.Segment{
			{Start: 200, End: 250, ViralScore: 9, Keywords: []string{"wait for it"}, Text: "wait for it"},
			{Start: 210, End: 260, ViralScore: 8},
			{Start: 100, End: 150, ViralScore: 5},
			{Start: 300, End: 350, ViralScore: 4},
		},
	}))
	if withCandidate {
		require.NoError(t, utils.WriteJSONFile(filepath.Join(dir, "candidate.json"), discovery.SourceVideo{
			ID:      "abc123",
			URL:     discovery.WatchURL("abc123"),
			Title:   "Best Moments",
			Channel: "Funny Channel",
			Kind:    discovery.KindChannel,
		}))
	}
	return dir
}

func params(dir string) map[string]interface{} {
	return map[string]interface{}{
		"input":      "${output}/source.mp4",
		"output":     dir,
		"scores":     "${output}/scores.json",
		"transcript": "${output}/transcript.json",
		"candidate":  "${output}/candidate.json",
		"count":      2,
		"runId":      "run-1",
	}
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "render", New().Name())
}

func TestModule_GetIO(t *testing.T) {
	io := New().GetIO()
	require.NoError(t, modules.ValidateIO(io))
	assert.Len(t, io.RequiredInputs, 2)
	assert.Equal(t, "clips", io.ProducedOutputs[0].Name)
}

func TestModule_Validate(t *testing.T) {
	dir := setupRun(t, true)
	m := NewWithExtractor(&copyExtractor{})

	tests := []struct {
		name    string
		modify  func(p map[string]interface{})
		wantErr string
	}{
		{name: "valid", modify: func(p map[string]interface{}) {}},
		{name: "missing scores", modify: func(p map[string]interface{}) { delete(p, "scores") }, wantErr: "scores"},
		{name: "zero count", modify: func(p map[string]interface{}) { p["count"] = 0 }, wantErr: "count"},
		{name: "bad crf", modify: func(p map[string]interface{}) { p["render"] = map[string]interface{}{"crf": 60} }, wantErr: "render"},
		{
			name:    "missing music",
			modify:  func(p map[string]interface{}) { p["render"] = map[string]interface{}{"musicFile": "/nonexistent/bed.mp3"} },
			wantErr: "render.musicFile",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(dir)
			tt.modify(p)
			err := m.Validate(p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModule_Execute(t *testing.T) {
	dir := setupRun(t, true)
	extractor := &copyExtractor{}

	result, err := NewWithExtractor(extractor).Execute(context.Background(), params(dir))
	require.NoError(t, err)

	clipsDir := filepath.Join(dir, DefaultClipsDir)
	assert.Equal(t, clipsDir, result.Outputs["clips"])
	assert.Equal(t, 2, result.Statistics["rendered"])
	assert.Equal(t, 0, result.Statistics["degraded"])
	// The 210 window overlaps the best one and is skipped.
	assert.Equal(t, []float64{200, 100}, extractor.extracted)

	sidecars, err := metadata.FindSidecars(clipsDir)
	require.NoError(t, err)
	require.Len(t, sidecars, 2)

	rec, err := metadata.ReadSidecar(sidecars[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(clipsDir, "abc123_01.mp4"), rec.ClipPath)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "abc123", rec.Source.ID)
	assert.Equal(t, 200.0, rec.StartTime)
	assert.Equal(t, 50.0, rec.Duration)
	assert.Equal(t, metadata.CategoryComedy, rec.Metadata.CategoryID)
	assert.Contains(t, rec.Metadata.Title, "Wait For It")
	assert.Contains(t, rec.Metadata.Description, "Funny Channel")
	assert.False(t, rec.Uploaded())

	content, err := os.ReadFile(rec.ClipPath)
	require.NoError(t, err)
	assert.Equal(t, "clip@200", string(content))

	// No stage scratch files are left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "work"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestModule_ExecuteSkipsFailedExtract(t *testing.T) {
	dir := setupRun(t, true)
	extractor := &copyExtractor{failExtract: map[float64]bool{200: true}}

	p := params(dir)
	p["count"] = 1
	result, err := NewWithExtractor(extractor).Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Statistics["rendered"])
	assert.Equal(t, []float64{200, 210}, extractor.extracted)

	rec, err := metadata.ReadSidecar(filepath.Join(dir, DefaultClipsDir, "abc123_01.json"))
	require.NoError(t, err)
	assert.Equal(t, 210.0, rec.StartTime)
}

func TestModule_ExecuteNothingRenderable(t *testing.T) {
	dir := setupRun(t, true)
	extractor := &copyExtractor{failExtract: map[float64]bool{200: true, 210: true, 100: true, 300: true}}

	_, err := NewWithExtractor(extractor).Execute(context.Background(), params(dir))
	assert.ErrorIs(t, err, rendering.ErrNoRenderableSegment)
}

func TestModule_ExecuteLocalSource(t *testing.T) {
	dir := setupRun(t, false)

	p := params(dir)
	p["count"] = 1
	_, err := NewWithExtractor(&copyExtractor{}).Execute(context.Background(), p)
	require.NoError(t, err)

	rec, err := metadata.ReadSidecar(filepath.Join(dir, DefaultClipsDir, "source_01.json"))
	require.NoError(t, err)
	assert.Equal(t, "source", rec.Source.ID)
	assert.Equal(t, 400.0, rec.Source.Duration)
	assert.Equal(t, metadata.CategoryEntertainment, rec.Metadata.CategoryID)
}

func TestModule_ExecuteMissingScores(t *testing.T) {
	dir := setupRun(t, true)
	require.NoError(t, os.Remove(filepath.Join(dir, score.ScoresFile)))

	_, err := NewWithExtractor(&copyExtractor{}).Execute(context.Background(), params(dir))
	assert.Error(t, err)
}
