package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/history"
	"github.com/gnzdotmx/viralshorts/internal/metadata"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/render"
	youtubesvc "github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	youtubeapi "google.golang.org/api/youtube/v3"
)

var fixedNow = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func uploadCreds() youtubesvc.Credentials {
	return youtubesvc.Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"}
}

func newModule(service youtubesvc.YouTubeService, creds youtubesvc.Credentials) *Module {
	m := NewWithService(service).(*Module)
	m.credentials = func() youtubesvc.Credentials { return creds }
	m.now = func() time.Time { return fixedNow }
	return m
}

// writeClips renders n fake clips of source "src" into dir/clips.
func writeClips(t *testing.T, dir string, n int) string {
	t.Helper()
	clips := filepath.Join(dir, "clips")
	require.NoError(t, os.MkdirAll(clips, 0755))
	for i := 1; i <= n; i++ {
		path := filepath.Join(clips, fmt.Sprintf("src_%02d.mp4", i))
		require.NoError(t, os.WriteFile(path, []byte("clip"), 0644))
		rec := metadata.NewClipRecord("run-1",
			discovery.SourceVideo{ID: "src", Kind: discovery.KindChannel},
			render.Clip{OutputPath: path, StartTime: float64(i * 60), Duration: 50},
			metadata.Metadata{Title: fmt.Sprintf("Clip %d", i), Tags: []string{"shorts"}, CategoryID: metadata.CategoryComedy},
		)
		_, err := metadata.WriteSidecar(rec)
		require.NoError(t, err)
	}
	return clips
}

func params(dir string) map[string]interface{} {
	return map[string]interface{}{
		"input":       "${output}/clips",
		"output":      dir,
		"historyFile": filepath.Join(dir, "history.json"),
	}
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "upload", New().Name())
}

func TestModule_GetIO(t *testing.T) {
	require.NoError(t, modules.ValidateIO(New().GetIO()))
}

func TestModule_Validate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		creds   youtubesvc.Credentials
		modify  func(p map[string]interface{})
		wantErr string
	}{
		{name: "valid", creds: uploadCreds(), modify: func(p map[string]interface{}) {}},
		{name: "api key only", creds: youtubesvc.Credentials{APIKey: "k"}, modify: func(p map[string]interface{}) {}, wantErr: "credentials"},
		{name: "dry run without credentials", modify: func(p map[string]interface{}) { p["dryRun"] = true }},
		{name: "bad privacy", creds: uploadCreds(), modify: func(p map[string]interface{}) { p["privacyStatus"] = "hidden" }, wantErr: "privacyStatus"},
		{name: "bad schedule time", creds: uploadCreds(), modify: func(p map[string]interface{}) { p["scheduleTime"] = "8pm" }, wantErr: "scheduleTime"},
		{name: "missing input", creds: uploadCreds(), modify: func(p map[string]interface{}) { delete(p, "input") }, wantErr: "input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(dir)
			tt.modify(p)
			err := newModule(&mocks.MockYouTubeService{}, tt.creds).Validate(p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModule_Execute(t *testing.T) {
	dir := t.TempDir()
	clips := writeClips(t, dir, 2)

	service := mocks.NewMockYouTubeService(t)
	client := &youtubeapi.Service{}
	service.On("InitializeYouTubeService", mock.Anything, uploadCreds()).Return(client, nil)
	service.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Clip 1" && u.PrivacyStatus == "public" && u.PublishAt.IsZero() &&
			u.CategoryID == metadata.CategoryComedy && assert.ObjectsAreEqual([]string{"shorts", "funny"}, u.Tags)
	})).Return("yt1", nil).Once()
	service.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Clip 2"
	})).Return("yt2", nil).Once()

	p := params(dir)
	p["extraTags"] = "funny"
	result, err := newModule(service, uploadCreds()).Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Statistics["uploaded"])
	assert.Equal(t, []string{"yt1", "yt2"}, result.Metadata["videoIds"])

	rec, err := metadata.ReadSidecar(filepath.Join(clips, "src_01.json"))
	require.NoError(t, err)
	assert.Equal(t, "yt1", rec.UploadedID)
	require.NotNil(t, rec.UploadedAt)
	assert.True(t, rec.UploadedAt.Equal(fixedNow))

	store, err := history.Open(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	assert.True(t, store.Seen("src"))

	// A second run finds nothing left to upload.
	again, err := newModule(mocks.NewMockYouTubeService(t), uploadCreds()).Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Statistics["uploaded"])
}

func TestModule_ExecuteScheduled(t *testing.T) {
	dir := t.TempDir()
	writeClips(t, dir, 3)

	var got []time.Time
	service := mocks.NewMockYouTubeService(t)
	service.On("InitializeYouTubeService", mock.Anything, mock.Anything).Return(&youtubeapi.Service{}, nil)
	service.On("UploadVideo", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got = append(got, args.Get(2).(youtubesvc.VideoUpload).PublishAt)
		}).Return("id", nil)

	p := params(dir)
	p["scheduleTime"] = "08:00"
	p["schedulePeriodicity"] = 2
	p["maxUploads"] = 2
	_, err := newModule(service, uploadCreds()).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC),
	}, got)
}

func TestModule_ExecuteQuotaAborts(t *testing.T) {
	dir := t.TempDir()
	writeClips(t, dir, 2)

	service := mocks.NewMockYouTubeService(t)
	service.On("InitializeYouTubeService", mock.Anything, mock.Anything).Return(&youtubeapi.Service{}, nil)
	service.On("UploadVideo", mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("failed to upload video: %w", youtubesvc.ErrQuota)).Once()

	_, err := newModule(service, uploadCreds()).Execute(context.Background(), params(dir))
	require.Error(t, err)
	assert.ErrorIs(t, err, youtubesvc.ErrQuota)
}

func TestModule_ExecutePartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeClips(t, dir, 2)

	service := mocks.NewMockYouTubeService(t)
	service.On("InitializeYouTubeService", mock.Anything, mock.Anything).Return(&youtubeapi.Service{}, nil)
	service.On("UploadVideo", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset")).Once()
	service.On("UploadVideo", mock.Anything, mock.Anything, mock.Anything).Return("yt2", nil).Once()

	result, err := newModule(service, uploadCreds()).Execute(context.Background(), params(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Statistics["uploaded"])
	assert.Equal(t, 1, result.Statistics["failed"])
}

func TestModule_ExecuteDryRun(t *testing.T) {
	dir := t.TempDir()
	writeClips(t, dir, 1)

	p := params(dir)
	p["dryRun"] = true
	result, err := newModule(mocks.NewMockYouTubeService(t), youtubesvc.Credentials{}).Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Statistics["uploaded"])
	_, err = os.Stat(filepath.Join(dir, "history.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPublishSlots(t *testing.T) {
	slots, err := publishSlots(fixedNow, "", 1, 2)
	require.NoError(t, err)
	assert.Nil(t, slots)

	slots, err = publishSlots(fixedNow, "20:00", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 20, 0, 0, 0, time.UTC),
	}, slots)

	_, err = publishSlots(fixedNow, "25:00", 1, 1)
	assert.Error(t, err)
}
