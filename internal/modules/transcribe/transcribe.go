package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// TranscriptFile is the normalized transcript written into the run folder.
const TranscriptFile = "transcript.json"

// Module implements speech-to-text over the source video
type Module struct {
	cmdExecutor transcribe.CommandExecutor
}

// Params contains the parameters for transcription
type Params struct {
	Input          string `json:"input"`          // Path to input video or audio file
	Output         string `json:"output"`         // Path to output directory
	Binary         string `json:"binary"`         // Whisper executable (default: "whisper")
	Model          string `json:"model"`          // Whisper model (default: "base")
	Language       string `json:"language"`       // Language for transcription (default: "auto")
	WordTimestamps *bool  `json:"wordTimestamps"` // Request per-word timings (default: true)
	WhisperParams  string `json:"whisperParams"`  // Additional parameters for Whisper CLI
	Required       bool   `json:"required"`       // Fail instead of degrading when whisper is missing
}

// New creates a new transcribe module
func New() modules.Module {
	return &Module{
		cmdExecutor: &transcribe.RealCommandExecutor{},
	}
}

// NewWithExecutor creates a new transcribe module with a custom command executor
func NewWithExecutor(executor transcribe.CommandExecutor) modules.Module {
	return &Module{
		cmdExecutor: executor,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "transcribe"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Input, p.Output); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}

	// Inputs produced by an earlier step do not exist yet.
	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	if fileInfo, err := os.Stat(resolvedInput); err == nil && !fileInfo.IsDir() {
		allowed := append([]string{".wav", ".mp3", ".m4a", ".aac"}, utils.VideoExtensions...)
		if err := utils.ValidateFileExtension(resolvedInput, allowed); err != nil {
			return err
		}
	}

	w := m.whisper(p)
	if !w.Available() {
		if p.Required {
			return &utils.ValidationError{Field: "binary", Message: fmt.Sprintf("%s not found in PATH", w.Binary)}
		}
		utils.LogWarning("%s not found in PATH; clips will be rendered without captions", w.Binary)
	}
	return nil
}

func (m *Module) whisper(p Params) *transcribe.Whisper {
	w := transcribe.NewWhisper(m.cmdExecutor)
	if p.Binary != "" {
		w.Binary = p.Binary
	}
	if p.Model != "" {
		w.Model = p.Model
	}
	w.Language = p.Language
	w.WordTimestamps = p.WordTimestamps == nil || *p.WordTimestamps
	if p.WhisperParams != "" {
		w.ExtraArgs = strings.Fields(p.WhisperParams)
	}
	return w
}

// Execute transcribes the input into transcript.json. When whisper is not
// installed the step succeeds without output and later steps run degraded.
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	utils.LogVerbose("Looking for input file: %s", resolvedInput)
	if _, err := os.Stat(resolvedInput); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to access input: %w", err)
	}

	// Whisper names its output after the input, so it writes into its own
	// folder to keep clear of other JSON files in the run.
	rawDir := filepath.Join(p.Output, "whisper")
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to create whisper directory: %w", err)
	}

	w := m.whisper(p)
	utils.LogInfo("Transcribing %s with whisper (%s)", filepath.Base(resolvedInput), w.Model)
	transcript, rawPath, err := w.Transcribe(ctx, resolvedInput, rawDir)
	if err != nil {
		if errors.Is(err, transcribe.ErrUnavailable) && !p.Required {
			utils.LogWarning("Transcription unavailable, continuing without transcript")
			return modules.ModuleResult{
				Metadata: map[string]interface{}{"degraded": true},
			}, nil
		}
		return modules.ModuleResult{}, fmt.Errorf("transcription failed: %w", err)
	}

	outputFile := filepath.Join(p.Output, TranscriptFile)
	if err := utils.WriteJSONFile(outputFile, transcript); err != nil {
		return modules.ModuleResult{}, err
	}

	utils.LogSuccess("Transcribed %d segments from %s", len(transcript.Segments), filepath.Base(resolvedInput))
	return modules.ModuleResult{
		Outputs: map[string]string{
			"transcript": outputFile,
		},
		Metadata: map[string]interface{}{
			"model":    w.Model,
			"language": transcript.Language,
			"raw":      rawPath,
			"degraded": false,
		},
		Statistics: map[string]interface{}{
			"segments": len(transcript.Segments),
		},
	}, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Video or audio file to transcribe",
				Patterns:    []string{".mp4", ".mov", ".mkv", ".webm", ".wav", ".mp3", ".m4a"},
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "model",
				Description: "Whisper model name",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "language",
				Description: "Spoken language, or auto",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "whisperParams",
				Description: "Additional whisper CLI parameters",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "transcript",
				Description: "Timed transcript in JSON",
				Patterns:    []string{TranscriptFile},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
