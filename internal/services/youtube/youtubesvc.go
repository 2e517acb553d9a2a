package youtube

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Required OAuth scopes for YouTube API
var requiredScopes = []string{
	youtube.YoutubeReadonlyScope,
	youtube.YoutubeUploadScope,
}

// tokenName is the key used for the stored user token
const tokenName = "youtube"

// Service implements YouTubeService against the Data API v3
type Service struct {
	// ClientOptions are appended to every client, for example to point the
	// client at a test endpoint.
	ClientOptions []option.ClientOption
}

// InitializeYouTubeService creates a YouTube service client
func (m *Service) InitializeYouTubeService(ctx context.Context, creds Credentials) (*youtube.Service, error) {
	var opts []option.ClientOption

	switch {
	case creds.hasRefreshToken():
		config := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       requiredScopes,
		}
		token := &oauth2.Token{
			RefreshToken: creds.RefreshToken,
			Expiry:       time.Now().Add(-time.Hour),
		}
		opts = append(opts, option.WithTokenSource(config.TokenSource(ctx, token)))
		utils.LogVerbose("Using refresh token credentials")

	case creds.CredentialsFile != "":
		ts, err := storedTokenSource(ctx, creds)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithTokenSource(ts))
		utils.LogVerbose("Using stored authorization token")

	case creds.APIKey != "":
		opts = append(opts, option.WithAPIKey(creds.APIKey))
		utils.LogVerbose("Using API key (search only)")

	default:
		return nil, fmt.Errorf("%w: no credentials configured (set YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN, or YOUTUBE_API_KEY)", ErrAuth)
	}

	opts = append(opts, m.ClientOptions...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

// storedTokenSource builds a token source from a client secrets file and the
// token saved by a previous authorization. Refreshed tokens are written back.
func storedTokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	credentials, err := os.ReadFile(creds.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credentials, requiredScopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials file: %v", ErrAuth, err)
	}

	storage, err := utils.NewTokenStorage(creds.TokenDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token storage: %w", err)
	}

	token, err := storage.LoadToken(tokenName)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no stored token in %s", ErrAuth, creds.TokenDir)
	}

	return &savingTokenSource{
		base:    config.TokenSource(ctx, token),
		storage: storage,
		last:    token.AccessToken,
	}, nil
}

// savingTokenSource persists the token whenever the access token changes.
type savingTokenSource struct {
	base    oauth2.TokenSource
	storage *utils.TokenStorage
	last    string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.storage.SaveToken(tokenName, token); err != nil {
			utils.LogWarning("Failed to save refreshed token: %v", err)
		}
	}
	return token, nil
}

// SearchVideos returns the ids of videos matching the query
func (m *Service) SearchVideos(ctx context.Context, service *youtube.Service, query SearchQuery) ([]string, error) {
	order := query.Order
	if order == "" {
		order = "date"
	}
	call := service.Search.List([]string{"snippet"}).
		Q(query.Query).
		Type("video").
		Order(order).
		Context(ctx)
	if query.MaxResults > 0 {
		call = call.MaxResults(query.MaxResults)
	}
	if !query.PublishedAfter.IsZero() {
		call = call.PublishedAfter(query.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if query.RegionCode != "" {
		call = call.RegionCode(query.RegionCode)
	}
	if query.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(query.RelevanceLanguage)
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", query.Query, Classify(err))
	}

	var ids []string
	for _, item := range response.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, nil
}

// GetVideoDetails retrieves snippet, statistics and content details
func (m *Service) GetVideoDetails(ctx context.Context, service *youtube.Service, videoIDs []string) ([]*youtube.Video, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	response, err := service.Videos.List([]string{"statistics", "contentDetails", "snippet"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", Classify(err))
	}
	return response.Items, nil
}

// BuildVideo converts an upload request into the API resource.
func BuildVideo(upload VideoUpload) *youtube.Video {
	privacy := upload.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}
	status := &youtube.VideoStatus{
		PrivacyStatus:           privacy,
		SelfDeclaredMadeForKids: false,
		ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
	}
	if !upload.PublishAt.IsZero() {
		// Scheduled videos must stay private until publishAt.
		status.PrivacyStatus = "private"
		status.PublishAt = upload.PublishAt.UTC().Format(time.RFC3339)
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       upload.Title,
			Description: upload.Description,
			CategoryId:  upload.CategoryID,
			Tags:        ProcessTags(upload.Tags),
		},
		Status: status,
	}
}

// UploadVideo uploads one clip and returns the assigned video id
func (m *Service) UploadVideo(ctx context.Context, service *youtube.Service, upload VideoUpload) (string, error) {
	file, err := os.Open(upload.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			utils.LogWarning("Failed to close video file: %v", err)
		}
	}()

	video := BuildVideo(upload)
	utils.LogVerbose("Uploading %s as %q (%s)", upload.FilePath, video.Snippet.Title, video.Status.PrivacyStatus)

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(upload.NotifySubscribers)
	response, err := call.
		Media(file, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", Classify(err))
	}

	if upload.PlaylistID != "" {
		playlistItem := &youtube.PlaylistItem{
			Snippet: &youtube.PlaylistItemSnippet{
				PlaylistId: upload.PlaylistID,
				ResourceId: &youtube.ResourceId{
					Kind:    "youtube#video",
					VideoId: response.Id,
				},
			},
		}
		if _, err := service.PlaylistItems.Insert([]string{"snippet"}, playlistItem).Context(ctx).Do(); err != nil {
			utils.LogWarning("Failed to add video to playlist: %v", err)
		} else {
			utils.LogVerbose("Added video to playlist: %s", upload.PlaylistID)
		}
	}

	return response.Id, nil
}
