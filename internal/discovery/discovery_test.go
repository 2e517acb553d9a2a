package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	ytapi "google.golang.org/api/youtube/v3"
)

type fakeRun struct {
	stdout   string
	stderr   string
	exitCode int
	// touch creates the file passed after -o.
	touch bool
}

var recorded [][]string

func fakeExecCommand(run fakeRun) func(ctx context.Context, command string, args ...string) *exec.Cmd {
	return func(ctx context.Context, command string, args ...string) *exec.Cmd {
		recorded = append(recorded, append([]string{command}, args...))
		cs := []string{"-test.run=TestHelperProcess", "--", command}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_STDOUT=" + run.stdout,
			"HELPER_STDERR=" + run.stderr,
			"HELPER_EXIT=" + strconv.Itoa(run.exitCode),
			"HELPER_TOUCH=" + strconv.FormatBool(run.touch),
		}
		return cmd
	}
}

// TestHelperProcess is not a real test, it's used to mock exec.CommandContext
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_TOUCH") == "true" {
		args := os.Args
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				_ = os.WriteFile(args[i+1], []byte("video"), 0644)
			}
		}
	}
	fmt.Fprint(os.Stdout, os.Getenv("HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("HELPER_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
	os.Exit(code)
}

func useFake(t *testing.T, run fakeRun) {
	t.Helper()
	recorded = nil
	execCommand = fakeExecCommand(run)
	t.Cleanup(func() {
		execCommand = exec.CommandContext
	})
}

const channelListing = `{"id":"short1","title":"Tiny","duration":42,"view_count":900000,"channel":"Chan"}
{"id":"long1","title":"Full Episode","duration":1800.5,"view_count":500000,"channel":"Chan"}
not json
{"id":"nodur","title":"Unknown Length","uploader":"Chan Uploads"}
{"title":"no id"}
`

func TestYTDLP_ListChannel(t *testing.T) {
	useFake(t, fakeRun{stdout: channelListing})

	videos, err := NewYTDLP().ListChannel(context.Background(), "https://www.youtube.com/@chan/videos")
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "long1", videos[0].ID)
	assert.Equal(t, 1800.5, videos[0].Duration)
	assert.Equal(t, int64(500000), videos[0].ViewCount)
	assert.Equal(t, "https://www.youtube.com/watch?v=long1", videos[0].URL)
	assert.Equal(t, KindChannel, videos[0].Kind)

	assert.Equal(t, "nodur", videos[1].ID)
	assert.Equal(t, "Chan Uploads", videos[1].Channel)
	assert.Zero(t, videos[1].Duration)

	require.Len(t, recorded, 1)
	assert.Equal(t, "yt-dlp --flat-playlist --print-json --sort view_count --playlist-end 10 https://www.youtube.com/@chan/videos",
		strings.Join(recorded[0], " "))
}

func TestYTDLP_ListChannelFailure(t *testing.T) {
	useFake(t, fakeRun{stderr: "ERROR: channel not found", exitCode: 1})

	_, err := NewYTDLP().ListChannel(context.Background(), "https://www.youtube.com/@missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel not found")
}

func TestYTDLP_ListChannelPartialFailure(t *testing.T) {
	useFake(t, fakeRun{stdout: channelListing, stderr: "ERROR: private video", exitCode: 1})

	videos, err := NewYTDLP().ListChannel(context.Background(), "https://www.youtube.com/@chan")
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}

func TestYTDLP_Download(t *testing.T) {
	useFake(t, fakeRun{touch: true})
	output := filepath.Join(t.TempDir(), "sources", "abc.mp4")

	require.NoError(t, NewYTDLP().Download(context.Background(), WatchURL("abc"), output))
	assert.FileExists(t, output)
	require.Len(t, recorded, 1)
	assert.Equal(t, []string{
		"yt-dlp", "-f", "bestvideo[height<=1080]+bestaudio/best",
		"--merge-output-format", "mp4", "--no-playlist",
		"-o", output, "https://www.youtube.com/watch?v=abc",
	}, recorded[0])

	// A second download of the same file is skipped.
	require.NoError(t, NewYTDLP().Download(context.Background(), WatchURL("abc"), output))
	assert.Len(t, recorded, 1)
}

func TestYTDLP_DownloadFailure(t *testing.T) {
	tests := []struct {
		name string
		run  fakeRun
		want string
	}{
		{name: "non-zero exit", run: fakeRun{stderr: "[youtube] abc: Downloading\nERROR: Video unavailable", exitCode: 1}, want: "Video unavailable"},
		{name: "missing output", run: fakeRun{}, want: "was not created"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFake(t, tt.run)
			err := NewYTDLP().Download(context.Background(), WatchURL("abc"), filepath.Join(t.TempDir(), "abc.mp4"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type fakeLister struct {
	listings map[string][]SourceVideo
	errs     map[string]error
	calls    []string
}

func (f *fakeLister) ListChannel(_ context.Context, channelURL string) ([]SourceVideo, error) {
	f.calls = append(f.calls, channelURL)
	if err := f.errs[channelURL]; err != nil {
		return nil, err
	}
	return f.listings[channelURL], nil
}

func seenSet(ids ...string) SeenFunc {
	set := make(map[string]bool)
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestChannelFinder_Find(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]SourceVideo{
			"a": {{ID: "a1"}, {ID: "a2"}},
			"b": {{ID: "b1"}},
			"c": {{ID: "c1"}, {ID: "c2"}},
		},
		errs: map[string]error{"b": errors.New("boom")},
	}

	tests := []struct {
		name      string
		offset    int
		seen      SeenFunc
		wantIDs   []string
		wantCalls []string
	}{
		{name: "first channel", offset: 0, seen: seenSet("a1"), wantIDs: []string{"a2"}, wantCalls: []string{"a"}},
		{name: "rotation skips failing channel", offset: 1, seen: seenSet(), wantIDs: []string{"c1", "c2"}, wantCalls: []string{"b", "c"}},
		{name: "exhausted channel moves on", offset: 5, seen: seenSet("c1", "c2"), wantIDs: []string{"a1", "a2"}, wantCalls: []string{"c", "a"}},
		{name: "nothing new", offset: 0, seen: seenSet("a1", "a2", "c1", "c2"), wantIDs: nil, wantCalls: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister.calls = nil
			finder := &ChannelFinder{Lister: lister, Channels: []string{"a", "b", "c"}, Offset: tt.offset}
			videos, err := finder.Find(context.Background(), tt.seen)
			require.NoError(t, err)

			var ids []string
			for _, v := range videos {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantCalls, lister.calls)
		})
	}

	_, err := (&ChannelFinder{Lister: lister}).Find(context.Background(), nil)
	assert.Error(t, err)
}

func video(id string, duration string, views uint64) *ytapi.Video {
	return &ytapi.Video{
		Id:             id,
		Snippet:        &ytapi.VideoSnippet{Title: "Title " + id, ChannelTitle: "Chan"},
		ContentDetails: &ytapi.VideoContentDetails{Duration: duration},
		Statistics:     &ytapi.VideoStatistics{ViewCount: views},
	}
}

func TestAPIFinder_Find(t *testing.T) {
	svc := mocks.NewMockYouTubeService(t)
	client := &ytapi.Service{}
	now := time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)

	matchQuery := func(q string) interface{} {
		return mock.MatchedBy(func(query youtube.SearchQuery) bool {
			return query.Query == q &&
				query.MaxResults == 3 &&
				query.Order == "date" &&
				query.RegionCode == "IN" &&
				query.PublishedAfter.Equal(now.Add(-10*24*time.Hour))
		})
	}

	svc.On("SearchVideos", mock.Anything, client, matchQuery("first")).
		Return([]string{"seen", "ok", "short", "unpopular"}, nil).Once()
	svc.On("GetVideoDetails", mock.Anything, client, []string{"ok", "short", "unpopular"}).
		Return([]*ytapi.Video{
			video("ok", "PT12M3S", 250000),
			video("short", "PT2M59S", 900000),
			video("unpopular", "PT20M", 49999),
		}, nil).Once()
	svc.On("SearchVideos", mock.Anything, client, matchQuery("second")).
		Return(nil, errors.New("temporary")).Once()
	svc.On("SearchVideos", mock.Anything, client, matchQuery("third")).
		Return([]string{"ok", "long"}, nil).Once()
	svc.On("GetVideoDetails", mock.Anything, client, []string{"long"}).
		Return([]*ytapi.Video{video("long", "PT2H", 60000)}, nil).Once()

	finder := NewAPIFinder(svc, client, []string{"first", "second", "third"})
	finder.RegionCode = "IN"
	finder.now = func() time.Time { return now }

	videos, err := finder.Find(context.Background(), seenSet("seen"))
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "ok", videos[0].ID)
	assert.Equal(t, 723.0, videos[0].Duration)
	assert.Equal(t, int64(250000), videos[0].ViewCount)
	assert.Equal(t, KindSearch, videos[0].Kind)
	assert.Equal(t, "Chan", videos[0].Channel)
	assert.Equal(t, "long", videos[1].ID)
}

func TestAPIFinder_QuotaAborts(t *testing.T) {
	svc := mocks.NewMockYouTubeService(t)
	svc.On("SearchVideos", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("search failed: %w", youtube.ErrQuota)).Once()

	finder := NewAPIFinder(svc, nil, []string{"first", "second"})
	_, err := finder.Find(context.Background(), nil)
	assert.ErrorIs(t, err, youtube.ErrQuota)
}

func TestAPIFinder_MaxCandidates(t *testing.T) {
	svc := mocks.NewMockYouTubeService(t)
	svc.On("SearchVideos", mock.Anything, mock.Anything, mock.Anything).
		Return([]string{"a", "b"}, nil).Once()
	svc.On("GetVideoDetails", mock.Anything, mock.Anything, []string{"a", "b"}).
		Return([]*ytapi.Video{video("a", "PT10M", 100000), video("b", "PT10M", 100000)}, nil).Once()

	finder := NewAPIFinder(svc, nil, []string{"first", "second"})
	finder.MaxCandidates = 1
	videos, err := finder.Find(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "a", videos[0].ID)
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]int{
		"PT12M3S":  723,
		"PT1H":     3600,
		"PT1H2M3S": 3723,
		"PT45S":    45,
		"P1D":      0,
		"":         0,
		"12:03":    0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseISODuration(in), in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12:03", FormatDuration(723))
	assert.Equal(t, "1:02:03", FormatDuration(3723.9))
	assert.Equal(t, "0:05", FormatDuration(5))
}
