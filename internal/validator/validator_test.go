package validator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool is the output and exit code of a tool's version command
type fakeTool struct {
	output string
	exit   int
}

func useFakeTools(t *testing.T, tools map[string]fakeTool) {
	t.Helper()
	utils.ExecLookPath = func(file string) (string, error) {
		if _, ok := tools[file]; ok {
			return "/usr/bin/" + file, nil
		}
		return "", exec.ErrNotFound
	}
	execCommand = func(ctx context.Context, command string, args ...string) *exec.Cmd {
		tool := tools[filepath.Base(command)]
		cs := []string{"-test.run=TestHelperProcess", "--", command}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_OUTPUT=" + tool.output,
			"HELPER_EXIT=" + strconv.Itoa(tool.exit),
		}
		return cmd
	}
	t.Cleanup(func() {
		utils.ExecLookPath = exec.LookPath
		execCommand = exec.CommandContext
	})
}

// TestHelperProcess is not a real test, it's used to mock exec.CommandContext
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stdout, os.Getenv("HELPER_OUTPUT"))
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
	os.Exit(code)
}

func TestValidateExternalTools(t *testing.T) {
	ffmpeg := fakeTool{output: "ffmpeg version 6.1 Copyright (c)"}
	ytdlp := fakeTool{output: "2024.05.27"}

	tests := []struct {
		name    string
		tools   map[string]fakeTool
		wantErr string
	}{
		{
			name:  "all present",
			tools: map[string]fakeTool{"ffmpeg": ffmpeg, "yt-dlp": ytdlp, "whisper": {output: "usage: whisper"}},
		},
		{
			name:  "whisper is optional",
			tools: map[string]fakeTool{"ffmpeg": ffmpeg, "yt-dlp": ytdlp},
		},
		{
			name:  "broken whisper is a warning",
			tools: map[string]fakeTool{"ffmpeg": ffmpeg, "yt-dlp": ytdlp, "whisper": {exit: 1}},
		},
		{
			name:    "missing ffmpeg",
			tools:   map[string]fakeTool{"yt-dlp": ytdlp},
			wantErr: "tool ffmpeg not found",
		},
		{
			name:    "missing yt-dlp",
			tools:   map[string]fakeTool{"ffmpeg": ffmpeg},
			wantErr: "tool yt-dlp not found",
		},
		{
			name:    "wrong ffmpeg",
			tools:   map[string]fakeTool{"ffmpeg": {output: "something else"}, "yt-dlp": ytdlp},
			wantErr: "invalid version of ffmpeg",
		},
		{
			name:    "failing yt-dlp",
			tools:   map[string]fakeTool{"ffmpeg": ffmpeg, "yt-dlp": {exit: 2}},
			wantErr: "failed to run yt-dlp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFakeTools(t, tt.tools)
			err := ValidateExternalTools()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	upload := youtube.Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}

	assert.NoError(t, ValidateCredentials(upload, true))
	assert.NoError(t, ValidateCredentials(youtube.Credentials{APIKey: "key"}, false))
	assert.NoError(t, ValidateCredentials(youtube.Credentials{}, false))

	err := ValidateCredentials(youtube.Credentials{APIKey: "key"}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, youtube.ErrAuth))
}
