// Package validator checks that the external tools and credentials a run
// needs are present.
package validator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// versionTimeout bounds each version probe.
const versionTimeout = 10 * time.Second

// ExternalTool represents an external command-line tool requirement
type ExternalTool struct {
	Name        string
	VersionArgs []string
	Validate    func(output string) bool
	// Purpose is shown when the tool is missing.
	Purpose string
}

// requiredTools is a list of external tools that must be installed
var requiredTools = []ExternalTool{
	{
		Name:        "ffmpeg",
		VersionArgs: []string{"-version"},
		Validate: func(output string) bool {
			return strings.Contains(output, "ffmpeg version")
		},
		Purpose: "probing, analysis and rendering",
	},
	{
		Name:        "yt-dlp",
		VersionArgs: []string{"--version"},
		Validate: func(output string) bool {
			return strings.TrimSpace(output) != ""
		},
		Purpose: "channel listing and downloads",
	},
}

// optionalTools lists tools that are checked but not required
var optionalTools = []ExternalTool{
	{
		Name:        "whisper",
		VersionArgs: []string{"--help"},
		Validate: func(output string) bool {
			return strings.Contains(output, "usage") || strings.Contains(output, "Usage") || strings.Contains(output, "options")
		},
		Purpose: "transcription (clips get no captions without it)",
	},
}

// checkTool finds a tool and runs its version command
func checkTool(tool ExternalTool) (string, error) {
	path, err := utils.ExecLookPath(tool.Name)
	if err != nil {
		return "", fmt.Errorf("tool %s not found in PATH (needed for %s): %w", tool.Name, tool.Purpose, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	output, err := execCommand(ctx, path, tool.VersionArgs...).CombinedOutput()
	if err != nil {
		return path, fmt.Errorf("failed to run %s: %w", tool.Name, err)
	}
	if !tool.Validate(string(output)) {
		return path, fmt.Errorf("invalid version of %s detected", tool.Name)
	}
	return path, nil
}

// ValidateExternalTools checks if all required external tools are installed.
// Missing optional tools are reported as warnings.
func ValidateExternalTools() error {
	for _, tool := range requiredTools {
		path, err := checkTool(tool)
		if err != nil {
			return err
		}
		utils.LogVerbose("✓ %s found at %s", tool.Name, path)
	}

	for _, tool := range optionalTools {
		path, err := checkTool(tool)
		if err != nil {
			utils.LogWarning("Optional tool unavailable: %v", err)
			continue
		}
		utils.LogVerbose("✓ Optional tool %s found at %s", tool.Name, path)
	}

	return nil
}

// ValidateCredentials checks the YouTube credentials in the environment.
// Upload credentials are required when requireUpload is set; without any
// credentials only channel discovery works.
func ValidateCredentials(creds youtube.Credentials, requireUpload bool) error {
	if creds.CanUpload() {
		utils.LogVerbose("✓ Upload credentials are set")
	} else if requireUpload {
		return fmt.Errorf("%w: set YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN, or GOOGLE_APPLICATION_CREDENTIALS", youtube.ErrAuth)
	} else {
		utils.LogWarning("No upload credentials set; the upload step will fail unless it runs with dryRun")
	}

	if creds.APIKey != "" || creds.CanUpload() {
		// Don't print the actual value for security
		utils.LogVerbose("✓ Search credentials are set")
	} else {
		utils.LogWarning("YOUTUBE_API_KEY is not set; search discovery is unavailable")
	}
	return nil
}
