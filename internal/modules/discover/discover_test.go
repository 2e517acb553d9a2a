package discover

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/history"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	youtubemocks "github.com/gnzdotmx/viralshorts/internal/services/youtube/mocks"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	youtubeapi "google.golang.org/api/youtube/v3"
)

type stubLister struct {
	listings map[string][]discovery.SourceVideo
	calls    []string
}

func (s *stubLister) ListChannel(_ context.Context, channelURL string) ([]discovery.SourceVideo, error) {
	s.calls = append(s.calls, channelURL)
	return s.listings[channelURL], nil
}

func fakeLookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "discover", New().Name())
}

func TestModule_GetIO(t *testing.T) {
	io := New().GetIO()
	require.NoError(t, modules.ValidateIO(io))
	assert.Equal(t, "historyFile", io.RequiredInputs[0].Name)
	assert.Equal(t, "candidate", io.ProducedOutputs[0].Name)
}

func TestModule_Validate(t *testing.T) {
	utils.ExecLookPath = fakeLookPath
	t.Cleanup(func() { utils.ExecLookPath = exec.LookPath })

	dir := t.TempDir()
	historyFile := filepath.Join(dir, "history.json")

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name:   "channels",
			params: map[string]interface{}{"output": dir, "historyFile": historyFile, "channels": []string{"https://www.youtube.com/@a"}},
		},
		{
			name:   "search",
			params: map[string]interface{}{"output": dir, "historyFile": historyFile, "mode": "search", "queries": []string{"funny"}},
		},
		{
			name:    "no channels",
			params:  map[string]interface{}{"output": dir, "historyFile": historyFile},
			wantErr: true,
		},
		{
			name:    "no queries",
			params:  map[string]interface{}{"output": dir, "historyFile": historyFile, "mode": "search"},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			params:  map[string]interface{}{"output": dir, "historyFile": historyFile, "mode": "rss"},
			wantErr: true,
		},
		{
			name:    "missing history",
			params:  map[string]interface{}{"output": dir, "channels": []string{"a"}},
			wantErr: true,
		},
		{
			name:    "inverted durations",
			params:  map[string]interface{}{"output": dir, "historyFile": historyFile, "mode": "search", "queries": []string{"q"}, "minDuration": 900, "maxDuration": 600},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModule_ExecuteChannels(t *testing.T) {
	dir := t.TempDir()
	historyFile := filepath.Join(dir, "history.json")

	store, err := history.Open(historyFile)
	require.NoError(t, err)
	store.Record("old", "")
	require.NoError(t, store.Save())

	lister := &stubLister{listings: map[string][]discovery.SourceVideo{
		"b": {{ID: "b1", Title: "B one", Kind: discovery.KindChannel}},
	}}
	module := NewWithServices(lister, nil)

	result, err := module.Execute(context.Background(), map[string]interface{}{
		"output":      dir,
		"historyFile": historyFile,
		"channels":    []string{"a", "b"},
	})
	require.NoError(t, err)

	// One processed id moves the rotation to the second channel.
	assert.Equal(t, []string{"b"}, lister.calls)
	assert.Equal(t, "b1", result.Metadata["videoId"])

	var chosen discovery.SourceVideo
	require.NoError(t, utils.ReadJSONFile(result.Outputs["candidate"], &chosen))
	assert.Equal(t, "B one", chosen.Title)
}

func TestModule_ExecuteNothingNew(t *testing.T) {
	dir := t.TempDir()
	module := NewWithServices(&stubLister{}, nil)

	_, err := module.Execute(context.Background(), map[string]interface{}{
		"output":      dir,
		"historyFile": filepath.Join(dir, "history.json"),
		"channels":    []string{"a"},
	})
	assert.ErrorIs(t, err, modules.ErrNothingToDo)
	_, statErr := os.Stat(filepath.Join(dir, CandidateFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestModule_ExecuteSearch(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "key")
	dir := t.TempDir()

	mockService := youtubemocks.NewMockYouTubeService(t)
	client := &youtubeapi.Service{}
	mockService.On("InitializeYouTubeService", mock.Anything, mock.MatchedBy(func(c youtube.Credentials) bool {
		return c.APIKey == "key"
	})).Return(client, nil)
	mockService.On("SearchVideos", mock.Anything, client, mock.MatchedBy(func(q youtube.SearchQuery) bool {
		return q.Query == "funny" && q.MaxResults == 3 && q.RegionCode == "IN"
	})).Return([]string{"v1"}, nil)
	mockService.On("GetVideoDetails", mock.Anything, client, []string{"v1"}).Return([]*youtubeapi.Video{{
		Id:             "v1",
		Snippet:        &youtubeapi.VideoSnippet{Title: "Found", ChannelTitle: "Chan"},
		ContentDetails: &youtubeapi.VideoContentDetails{Duration: "PT10M"},
		Statistics:     &youtubeapi.VideoStatistics{ViewCount: 75000},
	}}, nil)

	result, err := NewWithServices(nil, mockService).Execute(context.Background(), map[string]interface{}{
		"output":      dir,
		"historyFile": filepath.Join(dir, "history.json"),
		"mode":        "search",
		"queries":     []string{"funny"},
		"regionCode":  "IN",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", result.Metadata["videoId"])
	assert.Equal(t, "Chan", result.Metadata["channel"])
}

func TestModule_ExecuteSearchAuthFailure(t *testing.T) {
	dir := t.TempDir()
	mockService := youtubemocks.NewMockYouTubeService(t)
	mockService.On("InitializeYouTubeService", mock.Anything, mock.Anything).
		Return(nil, youtube.ErrAuth)

	_, err := NewWithServices(nil, mockService).Execute(context.Background(), map[string]interface{}{
		"output":      dir,
		"historyFile": filepath.Join(dir, "history.json"),
		"mode":        "search",
		"queries":     []string{"funny"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, youtube.ErrAuth))
}
