package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ExecLookPath allows us to mock exec.LookPath in tests
var ExecLookPath = exec.LookPath

// VideoExtensions lists the container formats the pipeline accepts as input
var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".m4v"}

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateInputPath validates an input path. Paths that point inside the
// run's output directory are accepted as-is because an earlier step creates
// them.
func ValidateInputPath(input, output string) error {
	if input == "" {
		return &ValidationError{
			Field:   "input",
			Message: "input path is required",
		}
	}

	if strings.Contains(input, "${output}") || (output != "" && strings.HasPrefix(input, output)) {
		return nil
	}

	if _, err := os.Stat(input); err != nil {
		return &ValidationError{
			Field:   "input",
			Message: "input path does not exist",
			Err:     err,
		}
	}

	return nil
}

// ValidateOutputPath validates an output path
func ValidateOutputPath(output string) error {
	if output == "" {
		return &ValidationError{
			Field:   "output",
			Message: "output path is required",
		}
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return &ValidationError{
			Field:   "output",
			Message: "failed to create output directory",
			Err:     err,
		}
	}

	return nil
}

// ValidateVideoFile validates a video file path and checks for FFmpeg
func ValidateVideoFile(videoFile string) error {
	if videoFile == "" {
		return &ValidationError{
			Field:   "video",
			Message: "video file path is required",
		}
	}

	if _, err := os.Stat(videoFile); os.IsNotExist(err) {
		return &ValidationError{
			Field:   "video",
			Message: fmt.Sprintf("video file does not exist: %s", videoFile),
			Err:     err,
		}
	}

	if err := ValidateFileExtension(videoFile, VideoExtensions); err != nil {
		return err
	}

	return ValidateRequiredDependency("ffmpeg")
}

// ResolveOutputPath resolves ${output} variable in paths
func ResolveOutputPath(path, outputDir string) string {
	if strings.Contains(path, "${output}") {
		return strings.ReplaceAll(path, "${output}", outputDir)
	}
	return path
}

// ValidateRequiredDependency checks if a required command is available
func ValidateRequiredDependency(cmd string) error {
	if _, err := ExecLookPath(cmd); err != nil {
		return &ValidationError{
			Field:   cmd,
			Message: fmt.Sprintf("%s not found in PATH", cmd),
			Err:     err,
		}
	}
	return nil
}

// ValidateFileExtension checks if a file has one of the allowed extensions
func ValidateFileExtension(filePath string, allowedExts []string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, allowedExt := range allowedExts {
		if ext == allowedExt {
			return nil
		}
	}
	return &ValidationError{
		Field:   "extension",
		Message: fmt.Sprintf("file extension %s not allowed. Allowed extensions: %v", ext, allowedExts),
	}
}

// ParseClockTime parses a 24-hour "HH:MM" string
func ParseClockTime(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("invalid time format: %q (expected HH:MM)", value),
		}
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("invalid hour: %s", parts[0]),
			Err:     err,
		}
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("invalid minute: %s", parts[1]),
			Err:     err,
		}
	}

	return hour, minute, nil
}
