package discovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// DefaultFormat selects at most 1080p video merged with the best audio.
const DefaultFormat = "bestvideo[height<=1080]+bestaudio/best"

// MinListedDuration drops channel entries shorter than this (Shorts).
const MinListedDuration = 60.0

// YTDLP drives the yt-dlp binary.
type YTDLP struct {
	Binary string
	Format string
	// PlaylistEnd limits how many channel entries are listed.
	PlaylistEnd int
}

// NewYTDLP returns a yt-dlp adapter with the default format.
func NewYTDLP() *YTDLP {
	return &YTDLP{Binary: "yt-dlp", Format: DefaultFormat, PlaylistEnd: 10}
}

type listedEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Duration  *float64 `json:"duration"`
	ViewCount *int64   `json:"view_count"`
	Channel   string   `json:"channel"`
	Uploader  string   `json:"uploader"`
}

// ListChannel lists the most viewed entries of a channel. Entries with a known
// duration under MinListedDuration are skipped; unknown durations are kept.
func (y *YTDLP) ListChannel(ctx context.Context, channelURL string) ([]SourceVideo, error) {
	end := y.PlaylistEnd
	if end <= 0 {
		end = 10
	}
	args := []string{
		"--flat-playlist",
		"--print-json",
		"--sort", "view_count",
		"--playlist-end", strconv.Itoa(end),
		channelURL,
	}

	utils.LogVerbose("Listing %s", channelURL)
	cmd := execCommand(ctx, y.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// yt-dlp exits non-zero when some entries are unavailable but still
		// prints the rest.
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("yt-dlp listing failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		utils.LogWarning("yt-dlp reported errors while listing %s: %v", channelURL, err)
	}

	return parseListing(&stdout), nil
}

func parseListing(r *bytes.Buffer) []SourceVideo {
	var videos []SourceVideo
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e listedEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			utils.LogDebug("Skipping unparsable listing line: %v", err)
			continue
		}
		if e.ID == "" {
			continue
		}
		if e.Duration != nil && *e.Duration < MinListedDuration {
			utils.LogVerbose("Skipping short entry %s (%.0fs)", e.ID, *e.Duration)
			continue
		}

		v := SourceVideo{
			ID:      e.ID,
			URL:     WatchURL(e.ID),
			Title:   e.Title,
			Channel: e.Channel,
			Kind:    KindChannel,
		}
		if v.Channel == "" {
			v.Channel = e.Uploader
		}
		if e.Duration != nil {
			v.Duration = *e.Duration
		}
		if e.ViewCount != nil {
			v.ViewCount = *e.ViewCount
		}
		videos = append(videos, v)
	}
	return videos
}

// Download fetches url into output as mp4. An existing output is reused.
func (y *YTDLP) Download(ctx context.Context, url, output string) error {
	if utils.FileExists(output) {
		utils.LogInfo("Source already downloaded: %s", output)
		return nil
	}
	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return err
	}

	format := y.Format
	if format == "" {
		format = DefaultFormat
	}
	args := []string{
		"-f", format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", output,
		url,
	}

	utils.LogInfo("Downloading %s", url)
	cmd := execCommand(ctx, y.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if utils.CurrentLogLevel >= utils.LevelVerbose {
		cmd.Stdout = os.Stdout
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp download failed: %w: %s", err, lastLine(stderr.String()))
	}

	if !utils.FileExists(output) {
		return fmt.Errorf("yt-dlp finished but %s was not created", output)
	}
	return nil
}

func (y *YTDLP) binary() string {
	if y.Binary == "" {
		return "yt-dlp"
	}
	return y.Binary
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
