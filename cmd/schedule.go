package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/history"
	"github.com/gnzdotmx/viralshorts/internal/scheduler"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gnzdotmx/viralshorts/internal/validator"
	"github.com/spf13/cobra"
)

var (
	scheduleWorkflowPath string
	scheduleRunNow       bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the workflow every day at the configured times",
	Long: `Stay in the foreground and run the workflow at each time listed in the
settings schedule (default 08:00 and 20:00 local time). Each run is bounded by
the run timeout; runs never overlap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("dependency validation failed: %w", err)
		}

		job := func(ctx context.Context) error {
			inputConfig, err := config.NewInputConfig("", settings.WorkDir, scheduleWorkflowPath, false, "")
			if err != nil {
				return err
			}
			inputConfig.HistoryFile = settings.HistoryFile

			err = runWorkflow(ctx, inputConfig)
			if errors.Is(err, history.ErrLocked) {
				utils.LogWarning("Previous run still active, skipping this slot")
				return nil
			}
			return err
		}

		s, err := scheduler.New(settings.Schedule, settings.Timeout(), job)
		if err != nil {
			return err
		}
		utils.LogInfo("Scheduling runs at %v (timeout %s)", settings.Schedule, settings.Timeout())
		return s.Run(cmd.Context(), scheduleRunNow)
	},
}

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleWorkflowPath, "workflow", "w", "", "Path to workflow YAML file (default: built-in workflow)")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "Also run once immediately")
	rootCmd.AddCommand(scheduleCmd)
}
