// Package config holds the per-run input configuration and the settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// InputConfig holds the configuration for input files and directories
type InputConfig struct {
	// InputPath is a local video that replaces discovery and download.
	InputPath string
	// OutputPath is the parent of the run folders, or the run folder itself
	// in retry mode.
	OutputPath string
	// WorkflowPath is the workflow YAML; empty selects the built-in workflow.
	WorkflowPath string
	RetryMode    bool
	// StepName is the step a retry resumes from; empty resumes at the first
	// step that did not complete.
	StepName    string
	HistoryFile string

	InputFileName string
	InputFileExt  string
}

// NewInputConfig creates a new input configuration
func NewInputConfig(inputPath, outputPath, workflowPath string, retryMode bool, stepName string) (*InputConfig, error) {
	config := &InputConfig{
		InputPath:    inputPath,
		OutputPath:   outputPath,
		WorkflowPath: workflowPath,
		RetryMode:    retryMode,
		StepName:     stepName,
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate performs comprehensive validation of the input configuration
func (c *InputConfig) validate() error {
	if c.WorkflowPath != "" {
		if _, err := os.Stat(c.WorkflowPath); os.IsNotExist(err) {
			return fmt.Errorf("workflow file does not exist: %s", c.WorkflowPath)
		}
	}

	if c.InputPath != "" {
		fileInfo, err := os.Stat(c.InputPath)
		if err != nil {
			return fmt.Errorf("input path does not exist: %w", err)
		}
		if fileInfo.IsDir() {
			return fmt.Errorf("input must be a file, not a directory: %s", c.InputPath)
		}
		c.InputFileName = filepath.Base(c.InputPath)
		c.InputFileExt = strings.ToLower(filepath.Ext(c.InputPath))
		if !c.IsValidVideoFile() {
			return fmt.Errorf("input is not a supported video file: %s", c.InputPath)
		}
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	fileInfo, err := os.Stat(c.OutputPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access output path: %w", err)
		}
		if c.RetryMode {
			return fmt.Errorf("run folder does not exist: %s", c.OutputPath)
		}
		if err := os.MkdirAll(c.OutputPath, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	} else if !fileInfo.IsDir() {
		return fmt.Errorf("output must be a directory, not a file: %s", c.OutputPath)
	}

	return nil
}

// IsValidVideoFile checks if the input file is a valid video file
func (c *InputConfig) IsValidVideoFile() bool {
	for _, ext := range utils.VideoExtensions {
		if c.InputFileExt == ext {
			return true
		}
	}
	return false
}
