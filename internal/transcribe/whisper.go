package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// ErrUnavailable is returned when the speech-to-text engine is not installed.
var ErrUnavailable = errors.New("speech-to-text engine not available")

// CommandExecutor interface for executing commands
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error)
	LookPath(file string) (string, error)
}

// RealCommandExecutor implements actual command execution
type RealCommandExecutor struct{}

func (e *RealCommandExecutor) ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (e *RealCommandExecutor) LookPath(file string) (string, error) {
	return utils.ExecLookPath(file)
}

// Whisper drives the whisper CLI.
type Whisper struct {
	Executor       CommandExecutor
	Binary         string
	Model          string
	Language       string
	WordTimestamps bool
	// ExtraArgs are appended verbatim after the generated arguments.
	ExtraArgs []string
}

// NewWhisper returns a whisper adapter with the "base" model.
func NewWhisper(executor CommandExecutor) *Whisper {
	if executor == nil {
		executor = &RealCommandExecutor{}
	}
	return &Whisper{
		Executor: executor,
		Binary:   "whisper",
		Model:    "base",
	}
}

// Available reports whether the whisper binary can be found.
func (w *Whisper) Available() bool {
	_, err := w.Executor.LookPath(w.Binary)
	return err == nil
}

// Args builds the whisper command line for input.
func (w *Whisper) Args(input, outputDir string) []string {
	args := []string{input}
	if w.Model != "" && !containsParam(w.ExtraArgs, "--model") {
		args = append(args, "--model", w.Model)
	}
	if w.Language != "" && w.Language != "auto" && !containsParam(w.ExtraArgs, "--language") {
		args = append(args, "--language", w.Language)
	}
	if w.WordTimestamps && !containsParam(w.ExtraArgs, "--word_timestamps") {
		args = append(args, "--word_timestamps", "True")
	}
	args = append(args, "--output_dir", outputDir, "--output_format", "json")
	return append(args, w.ExtraArgs...)
}

// Transcribe runs whisper over input and loads the JSON it writes to
// outputDir. It returns ErrUnavailable when whisper is not installed.
func (w *Whisper) Transcribe(ctx context.Context, input, outputDir string) (*Transcript, string, error) {
	if !w.Available() {
		return nil, "", ErrUnavailable
	}

	args := w.Args(input, outputDir)
	utils.LogVerbose("Running %s %s", w.Binary, strings.Join(args, " "))

	output, err := w.Executor.ExecuteCommand(ctx, w.Binary, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("whisper failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	jsonPath := OutputPath(input, outputDir)
	t, err := LoadJSON(jsonPath)
	if err != nil {
		return nil, "", err
	}
	return t, jsonPath, nil
}

// OutputPath is where whisper writes the JSON transcript for input.
func OutputPath(input, outputDir string) string {
	base := filepath.Base(input)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
}

// containsParam checks if a parameter is already in the arguments list
func containsParam(args []string, param string) bool {
	for _, arg := range args {
		if arg == param {
			return true
		}
	}
	return false
}
