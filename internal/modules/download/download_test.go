package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDownloader struct {
	url, output string
	err         error
}

func (s *stubDownloader) Download(_ context.Context, url, output string) error {
	s.url, s.output = url, output
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(output, []byte("video"), 0644)
}

func writeCandidate(t *testing.T, dir string, v discovery.SourceVideo) string {
	t.Helper()
	path := filepath.Join(dir, "candidate.json")
	require.NoError(t, utils.WriteJSONFile(path, v))
	return path
}

func TestModule_GetIO(t *testing.T) {
	io := New().GetIO()
	require.NoError(t, modules.ValidateIO(io))
	assert.Equal(t, "input", io.RequiredInputs[0].Name)
	assert.Equal(t, "video", io.ProducedOutputs[0].Name)
}

func TestModule_Validate(t *testing.T) {
	dir := t.TempDir()
	candidate := writeCandidate(t, dir, discovery.SourceVideo{ID: "abc"})
	module := NewWithDownloader(&stubDownloader{})

	assert.NoError(t, module.Validate(map[string]interface{}{"input": candidate, "output": dir}))
	assert.NoError(t, module.Validate(map[string]interface{}{"input": "${output}/candidate.json", "output": dir}))
	assert.Error(t, module.Validate(map[string]interface{}{"output": dir}))
	assert.Error(t, module.Validate(map[string]interface{}{"input": filepath.Join(t.TempDir(), "missing.json"), "output": dir}))
	assert.Error(t, module.Validate(map[string]interface{}{"input": candidate, "output": dir, "fileName": "source.mkv"}))
}

func TestModule_Execute(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, discovery.SourceVideo{ID: "abc"})
	stub := &stubDownloader{}

	result, err := NewWithDownloader(stub).Execute(context.Background(), map[string]interface{}{
		"input":  "${output}/candidate.json",
		"output": dir,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", stub.url)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), result.Outputs["video"])
	assert.FileExists(t, result.Outputs["video"])
}

func TestModule_ExecuteErrors(t *testing.T) {
	dir := t.TempDir()
	candidate := writeCandidate(t, dir, discovery.SourceVideo{ID: "abc", URL: "https://example.com/v"})

	_, err := NewWithDownloader(&stubDownloader{err: errors.New("unavailable")}).Execute(context.Background(), map[string]interface{}{
		"input":  candidate,
		"output": dir,
	})
	assert.ErrorContains(t, err, "unavailable")

	empty := writeCandidate(t, t.TempDir(), discovery.SourceVideo{})
	_, err = NewWithDownloader(&stubDownloader{}).Execute(context.Background(), map[string]interface{}{
		"input":  empty,
		"output": dir,
	})
	assert.ErrorContains(t, err, "no video id")
}
