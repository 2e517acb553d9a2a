// Package score implements the pipeline step that ranks candidate windows of
// the source video by viral score.
package score

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gnzdotmx/viralshorts/internal/media"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/segment"
	"github.com/gnzdotmx/viralshorts/internal/transcribe"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// ScoresFile holds the ranked windows of a run.
const ScoresFile = "scores.json"

// Diagnostics is what scoring needs from the transcoder.
type Diagnostics interface {
	media.Prober
	media.Analyzer
}

// Report is the content of scores.json.
type Report struct {
	Source      string            `json:"source"`
	Duration    float64           `json:"duration"`
	Strategy    segment.Strategy  `json:"strategy"`
	ClipLength  float64           `json:"clip_length"`
	Transcribed bool              `json:"transcribed"`
	Segments    []scoring.Segment `json:"segments"`
}

// LoadReport reads a scores file written by the score step.
func LoadReport(path string) (*Report, error) {
	var r Report
	if err := utils.ReadJSONFile(path, &r); err != nil {
		return nil, err
	}
	if len(r.Segments) == 0 {
		return nil, fmt.Errorf("%s contains no scored segments", path)
	}
	return &r, nil
}

// Module scores the source video
type Module struct {
	transcoder Diagnostics
}

// Params contains the parameters for scoring
type Params struct {
	Input          string          `json:"input"`          // Source video
	Output         string          `json:"output"`         // Run directory
	Transcript     string          `json:"transcript"`     // Optional transcript (JSON or SRT)
	Partition      segment.Options `json:"partition"`      // Window layout
	Weights        scoring.Weights `json:"weights"`        // Combiner weights
	SceneThreshold float64         `json:"sceneThreshold"` // Scene-change sensitivity
}

// New creates a new score module backed by ffmpeg
func New() modules.Module {
	return &Module{transcoder: media.NewFFmpeg()}
}

// NewWithTranscoder creates a score module with a custom transcoder
func NewWithTranscoder(transcoder Diagnostics) modules.Module {
	return &Module{transcoder: transcoder}
}

// Name returns the module name
func (m *Module) Name() string {
	return "score"
}

func parseParams(params map[string]interface{}) (Params, error) {
	p := Params{
		Partition:      segment.DefaultOptions(),
		Weights:        scoring.DefaultWeights(),
		SceneThreshold: media.DefaultSceneThreshold,
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
	if err := p.Partition.Validate(); err != nil {
		return &utils.ValidationError{Field: "partition", Message: "invalid partition options", Err: err}
	}
	if err := p.Weights.Validate(); err != nil {
		return &utils.ValidationError{Field: "weights", Message: "invalid weights", Err: err}
	}
	if p.SceneThreshold < 0 || p.SceneThreshold > 1 {
		return &utils.ValidationError{Field: "sceneThreshold", Message: fmt.Sprintf("must be within [0, 1], got %v", p.SceneThreshold)}
	}
	if _, ok := m.transcoder.(*media.FFmpeg); ok {
		return utils.ValidateRequiredDependency("ffmpeg")
	}
	return nil
}

// Execute probes, partitions and scores the source, writing scores.json
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	p, err := parseParams(params)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	video := utils.ResolveOutputPath(p.Input, p.Output)
	if !utils.FileExists(video) {
		return modules.ModuleResult{}, fmt.Errorf("source video not found: %s", video)
	}

	transcript := loadOptionalTranscript(utils.ResolveOutputPath(p.Transcript, p.Output))

	scorer := scoring.NewScorer(m.transcoder)
	scorer.Weights = p.Weights
	scorer.SceneThreshold = p.SceneThreshold

	report, err := Analyze(ctx, m.transcoder, scorer, video, transcript, p.Partition)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	outputFile := filepath.Join(p.Output, ScoresFile)
	if err := utils.WriteJSONFile(outputFile, report); err != nil {
		return modules.ModuleResult{}, err
	}

	best := report.Segments[0]
	utils.LogSuccess("Scored %d windows, best %.1fs-%.1fs (%.2f)", len(report.Segments), best.Start, best.End, best.ViralScore)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"scores": outputFile,
		},
		Metadata: map[string]interface{}{
			"duration":    report.Duration,
			"strategy":    string(report.Strategy),
			"transcribed": report.Transcribed,
		},
		Statistics: map[string]interface{}{
			"windows":   len(report.Segments),
			"bestScore": best.ViralScore,
			"bestStart": best.Start,
		},
	}, nil
}

// Analyze runs probe, partition and scoring over video. transcript may be nil.
func Analyze(ctx context.Context, prober media.Prober, scorer *scoring.Scorer, video string, transcript *transcribe.Transcript, opts segment.Options) (*Report, error) {
	duration, err := prober.Probe(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", video, err)
	}

	windows, err := segment.Partition(duration, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to partition %.1fs source: %w", duration, err)
	}
	utils.LogInfo("Scoring %d windows over %s (%s)", len(windows), filepath.Base(video), formatSeconds(duration))

	// A nil *Transcript must not reach the scorer as a non-nil interface.
	var text scoring.TextSource
	if transcript != nil {
		text = transcript
	}
	segments, err := scorer.Score(ctx, video, duration, windows, text)
	if err != nil {
		return nil, err
	}

	return &Report{
		Source:      video,
		Duration:    duration,
		Strategy:    opts.Strategy,
		ClipLength:  opts.ClipLength,
		Transcribed: transcript != nil,
		Segments:    segments,
	}, nil
}

func loadOptionalTranscript(path string) *transcribe.Transcript {
	if path == "" {
		return nil
	}
	if !utils.FileExists(path) {
		utils.LogWarning("Transcript %s not found, scoring without text features", path)
		return nil
	}
	t, err := transcribe.Load(path)
	if err != nil {
		utils.LogWarning("Ignoring unreadable transcript: %v", err)
		return nil
	}
	return t
}

func formatSeconds(v float64) string {
	s := int(v)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Source video to score",
				Patterns:    utils.VideoExtensions,
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "transcript",
				Description: "Transcript for keyword and sentiment features",
				Patterns:    []string{".json", ".srt"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "partition",
				Description: "Window layout options",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "weights",
				Description: "Score combiner weights",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "scores",
				Description: "Ranked candidate windows",
				Patterns:    []string{ScoresFile},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
