package cmd

import (
	"fmt"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/history"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/spf13/cobra"
)

var forgetID string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List processed source videos",
	Long: `List the source videos recorded in the history file with their uploads.
--forget removes a video so a later run may pick it again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if forgetID != "" {
			return forget(forgetID)
		}

		store, err := history.Open(settings.HistoryFile)
		if err != nil {
			return err
		}
		if store.Len() == 0 {
			utils.LogInfo("No processed videos in %s", store.Path())
			return nil
		}

		latest := make(map[string]history.UploadRecord)
		count := make(map[string]int)
		for _, r := range store.Records() {
			if _, ok := latest[r.VideoID]; !ok {
				latest[r.VideoID] = r
			}
			count[r.VideoID]++
		}

		rows := make([][]string, 0, store.Len())
		for _, id := range store.IDs() {
			row := []string{id, "", "0", ""}
			if r, ok := latest[id]; ok {
				row[1] = r.ClipID
				row[2] = fmt.Sprint(count[id])
				row[3] = r.UploadTimestamp.Local().Format(history.TimeLayout)
			}
			rows = append(rows, row)
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Source", "Last upload", "Uploads", "Uploaded at"}, rows, 2))
		if last, ok := store.LastUpload(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Last upload: %s (%s ago)\n", last.Format(history.TimeLayout), time.Since(last).Round(time.Minute))
		}
		return nil
	},
}

func forget(id string) error {
	unlock, err := history.Lock(settings.LockFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			utils.LogWarning("Failed to release run lock: %v", err)
		}
	}()

	store, err := history.Open(settings.HistoryFile)
	if err != nil {
		return err
	}
	if !store.Forget(id) {
		return fmt.Errorf("video %s is not in the history", id)
	}
	if err := store.Save(); err != nil {
		return err
	}
	utils.LogSuccess("Removed %s from %s", id, store.Path())
	return nil
}

func init() {
	historyCmd.Flags().StringVar(&forgetID, "forget", "", "Remove a source video id from the history")
	rootCmd.AddCommand(historyCmd)
}
