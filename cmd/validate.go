package cmd

import (
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gnzdotmx/viralshorts/internal/validator"
	"github.com/gnzdotmx/viralshorts/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	validateWorkflowPath string
	validateUpload       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate environment setup",
	Long:  `Check that the external tools, credentials and workflow file are usable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.LogInfo("Validating environment...")

		// Validate external tools (ffmpeg, yt-dlp, whisper)
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("external tools validation failed: %w", err)
		}
		utils.LogSuccess("External tools: OK")

		if err := validator.ValidateCredentials(youtube.CredentialsFromEnv(), validateUpload); err != nil {
			return fmt.Errorf("credentials validation failed: %w", err)
		}
		utils.LogSuccess("Credentials: OK")

		wf, err := workflow.LoadFromFile(&config.InputConfig{
			WorkflowPath: validateWorkflowPath,
			OutputPath:   settings.WorkDir,
			HistoryFile:  settings.HistoryFile,
		})
		if err != nil {
			return fmt.Errorf("workflow validation failed: %w", err)
		}
		utils.LogSuccess("Workflow %s: %d steps", wf.Name, len(wf.Steps))

		registry, err := workflow.NewRegistry()
		if err != nil {
			return err
		}
		for _, m := range registry.ListModules() {
			utils.LogVerbose("Module %s: %d required, %d optional inputs", m.Name(), len(m.GetIO().RequiredInputs), len(m.GetIO().OptionalInputs))
		}

		utils.LogSuccess("Environment validation completed successfully")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateWorkflowPath, "workflow", "w", "", "Workflow YAML file to check (default: built-in workflow)")
	validateCmd.Flags().BoolVar(&validateUpload, "upload", false, "Require upload credentials")
	rootCmd.AddCommand(validateCmd)
}
