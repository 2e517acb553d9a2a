package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/history"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gnzdotmx/viralshorts/internal/validator"
	"github.com/gnzdotmx/viralshorts/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	workflowFilePath  string
	inputFileOverride string
	retryFlag         bool
	outputFolderPath  string
	retryStepName     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the clip workflow once",
	Long: `Execute the clip workflow: discover a source video, download, transcribe,
score, render and upload. Without --workflow the built-in workflow is used.
With --input a local video replaces discovery and download.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate that external dependencies are installed
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("dependency validation failed: %w", err)
		}

		if retryFlag && outputFolderPath == "" {
			return fmt.Errorf("output folder path is required when using retry flag")
		}
		output := outputFolderPath
		if output == "" {
			output = settings.WorkDir
		}

		inputConfig, err := config.NewInputConfig(inputFileOverride, output, workflowFilePath, retryFlag, retryStepName)
		if err != nil {
			return err
		}
		inputConfig.HistoryFile = settings.HistoryFile

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout())
		defer cancel()
		return runWorkflow(ctx, inputConfig)
	},
}

// runWorkflow runs one workflow while holding the run lock
func runWorkflow(ctx context.Context, inputConfig *config.InputConfig) error {
	unlock, err := history.Lock(settings.LockFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			utils.LogWarning("Failed to release run lock: %v", err)
		}
	}()

	wf, err := workflow.LoadFromFile(inputConfig)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	wf.SetRetry(workflow.RetryStrategy{
		MaxAttempts:     settings.RetryAttempts,
		BackoffDuration: time.Duration(settings.RetryBackoff),
	})

	var state *workflow.WorkflowState
	if inputConfig.RetryMode {
		utils.LogInfo("Retrying workflow %s in run folder %s", wf.Name, inputConfig.OutputPath)
		state, err = wf.ExecuteRetry(ctx, inputConfig.OutputPath, inputConfig.StepName)
	} else {
		state, err = wf.Execute(ctx)
	}
	if err != nil {
		if state != nil {
			utils.LogInfo("Resume with: viralshorts run --retry -o %s", state.RunDir)
		}
		return fmt.Errorf("workflow execution failed: %w", err)
	}

	if state.StoppedBy != "" {
		utils.LogInfo("Nothing to do after step %s", state.StoppedBy)
	}
	utils.LogSuccess("Workflow completed successfully")
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&workflowFilePath, "workflow", "w", "", "Path to workflow YAML file (default: built-in workflow)")
	runCmd.Flags().StringVarP(&inputFileOverride, "input", "i", "", "Local source video; skips discovery and download")
	runCmd.Flags().BoolVarP(&retryFlag, "retry", "r", false, "Resume a failed run")
	runCmd.Flags().StringVarP(&outputFolderPath, "output-folder", "o", "", "Parent of run folders, or the run folder to resume with --retry")
	runCmd.Flags().StringVarP(&retryStepName, "step", "s", "", "Step to resume from with --retry (default: first unfinished step)")
	rootCmd.AddCommand(runCmd)
}
