package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
	settingsPath   string

	// settings is loaded before any command runs
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "viralshorts",
	Short: "Turn popular long-form videos into vertical shorts",
	Long: `viralshorts finds popular long-form videos, scores their moments by
loudness, keywords, sentiment and scene changes, renders the best windows as
vertical 9:16 clips and uploads them to YouTube.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set the global log level based on the flag
		utils.SetLogLevel(utils.LogLevelFromString(verbosityLevel))

		loaded, err := config.LoadSettings(settingsPath)
		if err != nil {
			return err
		}
		settings = loaded
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "",
		"Settings file (default: "+config.DefaultSettingsFile+" when present)")
}
