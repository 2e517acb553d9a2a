package discover

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/history"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// CandidateFile is the name of the chosen source video record.
const CandidateFile = "candidate.json"

// Discovery modes
const (
	ModeChannels = "channels"
	ModeSearch   = "search"
)

// Module picks one unprocessed source video per run
type Module struct {
	lister         discovery.ChannelLister
	youtubeService youtube.YouTubeService
}

// Params contains the parameters for discovery
type Params struct {
	Output      string `json:"output"`      // Path to output directory
	HistoryFile string `json:"historyFile"` // Processed-id history
	Mode        string `json:"mode"`        // channels (default) or search

	// channels mode
	Channels    []string `json:"channels"`    // Channel URLs scanned in rotation
	PlaylistEnd int      `json:"playlistEnd"` // Entries listed per channel (default: 10)

	// search mode
	Queries           []string `json:"queries"`           // Search terms, run in order
	LookbackDays      int      `json:"lookbackDays"`      // Only videos newer than this (default: 10)
	ResultsPerQuery   int64    `json:"resultsPerQuery"`   // search.list maxResults (default: 3)
	MaxCandidates     int      `json:"maxCandidates"`     // Stop after this many accepted videos
	RegionCode        string   `json:"regionCode"`        // e.g. "US"
	RelevanceLanguage string   `json:"relevanceLanguage"` // e.g. "en"
	MinDuration       int      `json:"minDuration"`       // Seconds (default: 180)
	MaxDuration       int      `json:"maxDuration"`       // Seconds (default: 7200)
	MinViews          uint64   `json:"minViews"`          // default: 50000
}

// New creates a new discover module
func New() modules.Module {
	return &Module{
		lister:         discovery.NewYTDLP(),
		youtubeService: &youtube.Service{},
	}
}

// NewWithServices creates a discover module with custom collaborators
func NewWithServices(lister discovery.ChannelLister, service youtube.YouTubeService) modules.Module {
	return &Module{lister: lister, youtubeService: service}
}

// Name returns the module name
func (m *Module) Name() string {
	return "discover"
}

func (p *Params) applyDefaults() {
	if p.Mode == "" {
		p.Mode = ModeChannels
	}
	if p.LookbackDays == 0 {
		p.LookbackDays = int(discovery.DefaultSearchLookback / (24 * time.Hour))
	}
	if p.ResultsPerQuery == 0 {
		p.ResultsPerQuery = discovery.DefaultSearchResults
	}
	if p.MinDuration == 0 {
		p.MinDuration = discovery.DefaultMinDuration
	}
	if p.MaxDuration == 0 {
		p.MaxDuration = discovery.DefaultMaxDuration
	}
	if p.MinViews == 0 {
		p.MinViews = discovery.DefaultMinViews
	}
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}
	p.applyDefaults()

	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.HistoryFile == "" {
		return &utils.ValidationError{Field: "historyFile", Message: "history file path is required"}
	}

	switch p.Mode {
	case ModeChannels:
		if len(p.Channels) == 0 {
			return &utils.ValidationError{Field: "channels", Message: "at least one channel is required"}
		}
		if err := utils.ValidateRequiredDependency("yt-dlp"); err != nil {
			return err
		}
	case ModeSearch:
		if len(p.Queries) == 0 {
			return &utils.ValidationError{Field: "queries", Message: "at least one search query is required"}
		}
	default:
		return &utils.ValidationError{Field: "mode", Message: fmt.Sprintf("unsupported discovery mode: %s", p.Mode)}
	}

	if p.MinDuration > p.MaxDuration {
		return &utils.ValidationError{Field: "minDuration", Message: "minDuration must not exceed maxDuration"}
	}
	return nil
}

// Execute finds the next source video and records it in candidate.json
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	p.applyDefaults()

	store, err := history.Open(p.HistoryFile)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	utils.LogVerbose("History holds %d processed videos", store.Len())

	finder, err := m.finder(ctx, p, store)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	candidates, err := finder.Find(ctx, store.Seen)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("discovery failed: %w", err)
	}
	if len(candidates) == 0 {
		utils.LogWarning("No new source videos found")
		return modules.ModuleResult{}, modules.ErrNothingToDo
	}

	chosen := candidates[0]
	candidatePath := filepath.Join(p.Output, CandidateFile)
	if err := utils.WriteJSONFile(candidatePath, chosen); err != nil {
		return modules.ModuleResult{}, err
	}

	utils.LogSuccess("Selected %s: %s", chosen.ID, chosen.Title)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"candidate": candidatePath,
		},
		Metadata: map[string]interface{}{
			"videoId": chosen.ID,
			"title":   chosen.Title,
			"channel": chosen.Channel,
			"mode":    p.Mode,
		},
		Statistics: map[string]interface{}{
			"candidates": len(candidates),
		},
	}, nil
}

func (m *Module) finder(ctx context.Context, p Params, store *history.Store) (discovery.Finder, error) {
	if p.Mode == ModeSearch {
		client, err := m.youtubeService.InitializeYouTubeService(ctx, youtube.CredentialsFromEnv())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize YouTube service: %w", err)
		}
		finder := discovery.NewAPIFinder(m.youtubeService, client, p.Queries)
		finder.Lookback = time.Duration(p.LookbackDays) * 24 * time.Hour
		finder.ResultsPerQuery = p.ResultsPerQuery
		finder.MaxCandidates = p.MaxCandidates
		finder.RegionCode = p.RegionCode
		finder.RelevanceLanguage = p.RelevanceLanguage
		finder.Filter = discovery.SearchFilter{
			MinDuration: p.MinDuration,
			MaxDuration: p.MaxDuration,
			MinViews:    p.MinViews,
		}
		return finder, nil
	}

	if y, ok := m.lister.(*discovery.YTDLP); ok && p.PlaylistEnd > 0 {
		y.PlaylistEnd = p.PlaylistEnd
	}
	return &discovery.ChannelFinder{
		Lister:   m.lister,
		Channels: p.Channels,
		// Rotating by history size moves to the next channel after each upload.
		Offset: store.Len(),
	}, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "historyFile",
				Description: "JSON history of processed source videos",
				Patterns:    []string{".json"},
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "channels",
				Description: "Channel URLs to scan",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "queries",
				Description: "Search queries for the Data API",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "candidate",
				Description: "Chosen source video record",
				Patterns:    []string{CandidateFile},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
