package youtube

import (
	"context"
	"os"
	"time"

	"google.golang.org/api/youtube/v3"
)

// YouTubeService defines the interface for YouTube service operations
type YouTubeService interface {
	// InitializeYouTubeService creates a YouTube service client
	InitializeYouTubeService(ctx context.Context, creds Credentials) (*youtube.Service, error)

	// SearchVideos returns the ids of videos matching the query
	SearchVideos(ctx context.Context, service *youtube.Service, query SearchQuery) ([]string, error)

	// GetVideoDetails retrieves snippet, statistics and content details
	GetVideoDetails(ctx context.Context, service *youtube.Service, videoIDs []string) ([]*youtube.Video, error)

	// UploadVideo uploads one clip and returns the assigned video id
	UploadVideo(ctx context.Context, service *youtube.Service, upload VideoUpload) (string, error)
}

// Credentials selects how the client authenticates. The first complete
// source wins: refresh token, then client secrets file with a stored token,
// then API key (search only).
type Credentials struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	CredentialsFile string
	APIKey          string
	// TokenDir overrides where stored tokens are read from.
	TokenDir string
}

// CredentialsFromEnv reads the YOUTUBE_* and GOOGLE_APPLICATION_CREDENTIALS
// variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:        os.Getenv("YOUTUBE_CLIENT_ID"),
		ClientSecret:    os.Getenv("YOUTUBE_CLIENT_SECRET"),
		RefreshToken:    os.Getenv("YOUTUBE_REFRESH_TOKEN"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		APIKey:          os.Getenv("YOUTUBE_API_KEY"),
	}
}

// CanUpload reports whether the credentials carry a user identity.
func (c Credentials) CanUpload() bool {
	return c.hasRefreshToken() || c.CredentialsFile != ""
}

func (c Credentials) hasRefreshToken() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// SearchQuery holds the search.list parameters used for discovery.
type SearchQuery struct {
	Query             string
	PublishedAfter    time.Time
	MaxResults        int64
	RegionCode        string
	RelevanceLanguage string
	Order             string
}

// VideoUpload represents the information needed to upload a video
type VideoUpload struct {
	FilePath      string
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
	// PublishAt schedules the video; a non-zero value forces private.
	PublishAt         time.Time
	NotifySubscribers bool
	PlaylistID        string
}
