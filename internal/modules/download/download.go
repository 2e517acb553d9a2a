package download

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// DefaultFileName is the name of the downloaded source inside the run folder.
const DefaultFileName = "source.mp4"

// Downloader fetches a video URL into a local file
type Downloader interface {
	Download(ctx context.Context, url, output string) error
}

// Module downloads the source video chosen by discovery
type Module struct {
	downloader Downloader
}

// Params contains the parameters for downloading
type Params struct {
	Input    string `json:"input"`    // Path to candidate.json
	Output   string `json:"output"`   // Path to output directory
	FileName string `json:"fileName"` // Output file name (default: source.mp4)
	Format   string `json:"format"`   // yt-dlp format selector
}

// New creates a new download module
func New() modules.Module {
	return &Module{downloader: discovery.NewYTDLP()}
}

// NewWithDownloader creates a download module with a custom downloader
func NewWithDownloader(d Downloader) modules.Module {
	return &Module{downloader: d}
}

// Name returns the module name
func (m *Module) Name() string {
	return "download"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Input, p.Output); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.FileName != "" {
		if err := utils.ValidateFileExtension(p.FileName, []string{".mp4"}); err != nil {
			return err
		}
	}

	if _, ok := m.downloader.(*discovery.YTDLP); ok {
		return utils.ValidateRequiredDependency("yt-dlp")
	}
	return nil
}

// Execute downloads the candidate video into the output folder
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.FileName == "" {
		p.FileName = DefaultFileName
	}

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	var source discovery.SourceVideo
	if err := utils.ReadJSONFile(resolvedInput, &source); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to read candidate: %w", err)
	}
	if source.ID == "" {
		return modules.ModuleResult{}, fmt.Errorf("candidate %s has no video id", resolvedInput)
	}
	if source.URL == "" {
		source.URL = discovery.WatchURL(source.ID)
	}

	if y, ok := m.downloader.(*discovery.YTDLP); ok && p.Format != "" {
		y.Format = p.Format
	}

	videoPath := filepath.Join(p.Output, p.FileName)
	if err := m.downloader.Download(ctx, source.URL, videoPath); err != nil {
		return modules.ModuleResult{}, err
	}

	utils.LogSuccess("Downloaded %s to %s", source.ID, videoPath)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"video": videoPath,
		},
		Metadata: map[string]interface{}{
			"videoId": source.ID,
			"url":     source.URL,
		},
	}, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Source video record from discovery",
				Patterns:    []string{"candidate.json"},
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "fileName",
				Description: "Name of the downloaded file",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "format",
				Description: "yt-dlp format selector",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "video",
				Description: "Downloaded source video",
				Patterns:    []string{".mp4"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
