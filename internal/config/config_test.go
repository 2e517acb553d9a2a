package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInputConfig(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.MP4")
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0644))
	require.NoError(t, os.WriteFile(text, []byte("t"), 0644))

	tests := []struct {
		name     string
		input    string
		output   string
		workflow string
		retry    bool
		wantErr  string
	}{
		{name: "discovery run", output: filepath.Join(dir, "out")},
		{name: "local video", input: video, output: dir},
		{name: "not a video", input: text, output: dir, wantErr: "not a supported video"},
		{name: "input is dir", input: dir, output: dir, wantErr: "not a directory"},
		{name: "missing workflow", output: dir, workflow: filepath.Join(dir, "nope.yaml"), wantErr: "workflow file does not exist"},
		{name: "missing output", wantErr: "output path is required"},
		{name: "output is file", output: video, wantErr: "output must be a directory"},
		{name: "retry into missing folder", output: filepath.Join(dir, "gone"), retry: true, wantErr: "run folder does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewInputConfig(tt.input, tt.output, tt.workflow, tt.retry, "")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, tt.output)
			if tt.input != "" {
				assert.Equal(t, ".mp4", cfg.InputFileExt)
				assert.True(t, cfg.IsValidVideoFile())
			}
		})
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "uploaded_videos.json", s.HistoryFile)
	assert.Equal(t, "uploaded_videos.json.lock", s.LockFile)
	assert.Equal(t, []string{"08:00", "20:00"}, s.Schedule)
	assert.Equal(t, time.Hour, s.Timeout())
	assert.Equal(t, 1, s.RetryAttempts)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
historyFile: /data/history.json
schedule: ["06:30"]
runTimeout: 90m
retryAttempts: 3
`), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/history.json", s.HistoryFile)
	assert.Equal(t, "/data/history.json.lock", s.LockFile)
	assert.Equal(t, "output", s.WorkDir)
	assert.Equal(t, []string{"06:30"}, s.Schedule)
	assert.Equal(t, 90*time.Minute, s.Timeout())
	assert.Equal(t, 3, s.RetryAttempts)
	assert.Equal(t, Duration(30*time.Second), s.RetryBackoff)
}

func TestLoadSettings_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad duration", content: "runTimeout: soon\n", wantErr: "invalid duration"},
		{name: "bad time", content: "schedule: [\"8pm\"]\n", wantErr: "schedule"},
		{name: "zero retries", content: "retryAttempts: 0\n", wantErr: "retryAttempts"},
		{name: "negative timeout", content: "runTimeout: -1h\n", wantErr: "runTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadSettings(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
