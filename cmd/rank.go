package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/modules/score"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/segment"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rankTranscript string
	rankStrategy   string
	rankClipLength float64
	rankNumClips   int
	rankTop        int
	rankDistinct   bool
)

var rankCmd = &cobra.Command{
	Use:   "rank <video>",
	Short: "Score a video's windows and print them without rendering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		video := args[0]
		if err := utils.ValidateVideoFile(video); err != nil {
			return err
		}
		if err := utils.ValidateRequiredDependency("ffmpeg"); err != nil {
			return err
		}

		opts := segment.DefaultOptions()
		opts.Strategy = segment.Strategy(rankStrategy)
		opts.ClipLength = rankClipLength
		opts.NumClips = rankNumClips
		if err := opts.Validate(); err != nil {
			return err
		}

		var transcript *transcribe.Transcript
		if rankTranscript != "" {
			t, err := transcribe.Load(rankTranscript)
			if err != nil {
				return fmt.Errorf("failed to load transcript: %w", err)
			}
			transcript = t
		}

		ffmpeg := media.NewFFmpeg()
		report, err := score.Analyze(cmd.Context(), ffmpeg, scoring.NewScorer(ffmpeg), video, transcript, opts)
		if err != nil {
			return err
		}

		segments := report.Segments
		switch {
		case rankDistinct:
			limit := rankTop
			if limit <= 0 {
				limit = len(segments)
			}
			segments = scoring.Top(segments, limit)
		case rankTop > 0 && len(segments) > rankTop:
			segments = segments[:rankTop]
		}

		rows := make([][]string, 0, len(segments))
		for i, s := range segments {
			bonus := ""
			if s.Bonus {
				bonus = "✓"
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				discovery.FormatDuration(s.Start),
				discovery.FormatDuration(s.End),
				fmt.Sprintf("%.3f", s.ViralScore),
				fmt.Sprintf("%.2f", s.AudioScore),
				fmt.Sprintf("%.2f", s.KeywordScore),
				fmt.Sprintf("%.2f", s.SentimentScore),
				fmt.Sprintf("%.2f", s.SceneScore),
				bonus,
				strings.Join(s.Keywords, ", "),
			})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", video, discovery.FormatDuration(report.Duration), report.Strategy)
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"#", "Start", "End", "Viral", "Audio", "Keyword", "Sentiment", "Scene", "Bonus", "Keywords"},
			rows, 0, 1, 2, 3, 4, 5, 6, 7,
		))
		return nil
	},
}

func init() {
	defaults := segment.DefaultOptions()
	rankCmd.Flags().StringVarP(&rankTranscript, "transcript", "t", "", "Transcript (whisper JSON or SRT) for keyword and sentiment scores")
	rankCmd.Flags().StringVar(&rankStrategy, "strategy", string(defaults.Strategy), "Window layout: equal-segments or fixed-stride")
	rankCmd.Flags().Float64Var(&rankClipLength, "clip-length", defaults.ClipLength, "Window length in seconds")
	rankCmd.Flags().IntVar(&rankNumClips, "num-clips", defaults.NumClips, "Windows for equal-segments")
	rankCmd.Flags().IntVarP(&rankTop, "top", "n", 0, "Show only the best N windows")
	rankCmd.Flags().BoolVar(&rankDistinct, "distinct", false, "Skip windows overlapping a better one, as render does")
	rootCmd.AddCommand(rankCmd)
}
