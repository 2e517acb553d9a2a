package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gnzdotmx/viralshorts/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	outputDir     string
	keepLatest    int
	olderThanDays int
	cleanupDryRun bool
)

// runFolder is a run directory named <workflow>-YYYYMMDD-HHMMSS
type runFolder struct {
	name    string
	started time.Time
}

// parseRunFolder extracts the start time from a run folder name
func parseRunFolder(name string) (runFolder, bool) {
	suffix := len(workflow.RunDirTimeFormat)
	if len(name) < suffix+2 || name[len(name)-suffix-1] != '-' {
		return runFolder{}, false
	}
	started, err := time.ParseInLocation(workflow.RunDirTimeFormat, name[len(name)-suffix:], time.Local)
	if err != nil {
		return runFolder{}, false
	}
	return runFolder{name: name, started: started}, true
}

// selectForCleanup returns the folders to delete, oldest first
func selectForCleanup(folders []runFolder, keep int, olderThan time.Duration, now time.Time) []runFolder {
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].started.Before(folders[j].started)
	})

	remove := make(map[string]bool)
	if keep > 0 && len(folders) > keep {
		for _, f := range folders[:len(folders)-keep] {
			remove[f.name] = true
		}
	}
	if olderThan > 0 {
		cutoff := now.Add(-olderThan)
		for _, f := range folders {
			if f.started.Before(cutoff) {
				remove[f.name] = true
			}
		}
	}

	var selected []runFolder
	for _, f := range folders {
		if remove[f.name] {
			selected = append(selected, f)
		}
	}
	return selected
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old run folders",
	Long:  `Remove old run folders based on age or count. Rendered clips go with them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := outputDir
		if dir == "" {
			dir = settings.WorkDir
		}
		if keepLatest <= 0 && olderThanDays <= 0 {
			return fmt.Errorf("one of --keep-latest or --older-than is required")
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read output directory: %w", err)
		}

		var folders []runFolder
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if f, ok := parseRunFolder(entry.Name()); ok {
				folders = append(folders, f)
			}
		}
		if len(folders) == 0 {
			utils.LogInfo("No run folders found in %s", dir)
			return nil
		}

		toDelete := selectForCleanup(folders, keepLatest, time.Duration(olderThanDays)*24*time.Hour, time.Now())
		if len(toDelete) == 0 {
			utils.LogInfo("No run folders to delete")
			return nil
		}

		utils.LogInfo("Found %d run folders to delete:", len(toDelete))
		for _, f := range toDelete {
			utils.LogInfo("- %s", f.name)
		}
		if cleanupDryRun {
			utils.LogInfo("Dry run - no folders were deleted")
			return nil
		}

		failed := 0
		for _, f := range toDelete {
			fullPath := filepath.Join(dir, f.name)
			utils.LogVerbose("Deleting %s", fullPath)
			if err := os.RemoveAll(fullPath); err != nil {
				utils.LogError("Error deleting %s: %v", fullPath, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("failed to delete %d of %d run folders", failed, len(toDelete))
		}
		utils.LogSuccess("Cleanup completed")
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Folder holding run folders (default: settings workDir)")
	cleanupCmd.Flags().IntVarP(&keepLatest, "keep-latest", "k", 0, "Keep this many latest run folders")
	cleanupCmd.Flags().IntVarP(&olderThanDays, "older-than", "o", 0, "Delete run folders older than this many days")
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "Show what would be deleted without actually deleting")
	rootCmd.AddCommand(cleanupCmd)
}
