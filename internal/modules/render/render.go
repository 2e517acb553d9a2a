// Package render implements the pipeline step that turns the best scored
// windows into finished vertical clips with upload sidecars.
package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/media"
	"github.com/gnzdotmx/viralshorts/internal/metadata"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/modules/score"
	rendering "github.com/gnzdotmx/viralshorts/internal/render"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// DefaultClipsDir is the run subfolder receiving clips and sidecars.
const DefaultClipsDir = "clips"

// Module renders clips from scores.json
type Module struct {
	extractor media.Extractor
}

// Params contains the parameters for rendering
type Params struct {
	Input      string            `json:"input"`      // Source video
	Output     string            `json:"output"`     // Run directory
	Scores     string            `json:"scores"`     // scores.json from the score step
	Transcript string            `json:"transcript"` // Optional transcript for captions and metadata
	Candidate  string            `json:"candidate"`  // Optional candidate.json for attribution
	Count      int               `json:"count"`      // Clips to render (default: 3)
	ClipsDir   string            `json:"clipsDir"`   // Subfolder for clips (default: "clips")
	RunID      string            `json:"runId"`      // Identifier stored in sidecars
	Render     rendering.Options `json:"render"`     // Filter pass options
}

// New creates a new render module backed by ffmpeg
func New() modules.Module {
	return &Module{extractor: media.NewFFmpeg()}
}

// NewWithExtractor creates a render module with a custom extractor
func NewWithExtractor(extractor media.Extractor) modules.Module {
	return &Module{extractor: extractor}
}

// Name returns the module name
func (m *Module) Name() string {
	return "render"
}

func parseParams(params map[string]interface{}) (Params, error) {
	p := Params{
		Count:    3,
		ClipsDir: DefaultClipsDir,
		Render:   rendering.DefaultOptions(),
	}
	err := modules.ParseParams(params, &p)
	return p, err
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	p, err := parseParams(params)
	if err != nil {
		return err
	}
	if err := utils.ValidateInputPath(p.Input, p.Output); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.Scores == "" {
		return &utils.ValidationError{Field: "scores", Message: "scores file is required"}
	}
	if p.Count <= 0 {
		return &utils.ValidationError{Field: "count", Message: fmt.Sprintf("must be positive, got %d", p.Count)}
	}
	if err := p.Render.Validate(); err != nil {
		return &utils.ValidationError{Field: "render", Message: "invalid render options", Err: err}
	}
	for field, path := range map[string]string{
		"render.musicFile":   p.Render.MusicFile,
		"render.creditImage": p.Render.CreditImage,
		"render.fontFile":    p.Render.FontFile,
	} {
		if path != "" && !utils.FileExists(path) {
			return &utils.ValidationError{Field: field, Message: fmt.Sprintf("file does not exist: %s", path)}
		}
	}
	if _, ok := m.extractor.(*media.FFmpeg); ok {
		return utils.ValidateRequiredDependency("ffmpeg")
	}
	return nil
}

// Execute renders the top windows and writes a sidecar for each clip
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	p, err := parseParams(params)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	video := utils.ResolveOutputPath(p.Input, p.Output)
	if !utils.FileExists(video) {
		return modules.ModuleResult{}, fmt.Errorf("source video not found: %s", video)
	}
	report, err := score.LoadReport(utils.ResolveOutputPath(p.Scores, p.Output))
	if err != nil {
		return modules.ModuleResult{}, err
	}

	source := loadSource(utils.ResolveOutputPath(p.Candidate, p.Output), video, report.Duration)
	transcript := loadTranscript(utils.ResolveOutputPath(p.Transcript, p.Output))
	if transcript == nil && p.Render.Captions {
		utils.LogInfo("No transcript available, clips will not carry captions")
	}

	runID := p.RunID
	if runID == "" {
		runID = metadata.NewRunID()
	}

	clipsDir := filepath.Join(p.Output, p.ClipsDir)
	if err := utils.EnsureDir(clipsDir); err != nil {
		return modules.ModuleResult{}, err
	}
	prefix := utils.SanitizeFilename(source.ID)
	namer := func(n int, _ scoring.Segment) string {
		return filepath.Join(clipsDir, fmt.Sprintf("%s_%02d.mp4", prefix, n+1))
	}

	renderer := rendering.New(m.extractor, p.Render)
	base := rendering.Job{
		Source:     video,
		SourceID:   source.ID,
		Channel:    source.Channel,
		Transcript: transcript,
		WorkDir:    filepath.Join(p.Output, "work"),
	}
	clips, err := renderer.RenderBest(ctx, base, report.Segments, p.Count, namer)
	if err != nil && len(clips) == 0 {
		return modules.ModuleResult{}, err
	}
	if err != nil {
		utils.LogWarning("Stopped after %d clips: %v", len(clips), err)
	}

	degraded := 0
	var sidecars []string
	for _, clip := range clips {
		meta := metadata.Generate(metadata.Input{
			Source:   source,
			Keywords: clip.Segment.Keywords,
			Text:     clip.Segment.Text,
		})
		rec := metadata.NewClipRecord(runID, source, clip, meta)
		if rec.Degraded {
			degraded++
		}
		path, err := metadata.WriteSidecar(rec)
		if err != nil {
			return modules.ModuleResult{}, err
		}
		utils.LogVerbose("%s: %q", filepath.Base(clip.OutputPath), meta.Title)
		sidecars = append(sidecars, path)
	}

	utils.LogSuccess("Rendered %d clips into %s", len(clips), clipsDir)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"clips": clipsDir,
		},
		Metadata: map[string]interface{}{
			"runId":    runID,
			"sourceId": source.ID,
			"sidecars": strings.Join(sidecars, ","),
		},
		Statistics: map[string]interface{}{
			"rendered": len(clips),
			"degraded": degraded,
		},
	}, nil
}

// loadSource reads the discovered candidate, or describes a local file when
// the run started from one.
func loadSource(candidatePath, video string, duration float64) discovery.SourceVideo {
	if candidatePath != "" && utils.FileExists(candidatePath) {
		var src discovery.SourceVideo
		if err := utils.ReadJSONFile(candidatePath, &src); err == nil && src.ID != "" {
			return src
		} else if err != nil {
			utils.LogWarning("Ignoring unreadable candidate: %v", err)
		}
	}
	name := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return discovery.SourceVideo{
		ID:       utils.SanitizeFilename(name),
		URL:      video,
		Title:    name,
		Duration: duration,
	}
}

func loadTranscript(path string) *transcribe.Transcript {
	if path == "" || !utils.FileExists(path) {
		return nil
	}
	t, err := transcribe.Load(path)
	if err != nil {
		utils.LogWarning("Ignoring unreadable transcript: %v", err)
		return nil
	}
	return t
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Source video",
				Patterns:    utils.VideoExtensions,
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "scores",
				Description: "Ranked windows from the score step",
				Patterns:    []string{score.ScoresFile},
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "transcript",
				Description: "Transcript for captions",
				Patterns:    []string{".json", ".srt"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "candidate",
				Description: "Discovered source video for attribution",
				Patterns:    []string{".json"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "render",
				Description: "Filter pass options",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "runId",
				Description: "Run identifier stored in sidecars",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "clips",
				Description: "Rendered clips with JSON sidecars",
				Patterns:    []string{".mp4", metadata.SidecarExt},
				Type:        string(modules.OutputTypeDirectory),
			},
		},
	}
}
