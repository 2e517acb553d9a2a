// Package upload implements the pipeline step that publishes rendered clips
// and records their source videos in the history file.
package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/history"
	"github.com/gnzdotmx/viralshorts/internal/metadata"
	modules "github.com/gnzdotmx/viralshorts/internal/mod"
	youtubesvc "github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// Module implements YouTube Shorts upload of rendered clips
type Module struct {
	youtubeService youtubesvc.YouTubeService
	credentials    func() youtubesvc.Credentials
	now            func() time.Time
}

// Params contains the parameters for uploading
type Params struct {
	Input               string `json:"input"`               // Folder holding clips and sidecars
	Output              string `json:"output"`              // Run directory
	HistoryFile         string `json:"historyFile"`         // Processed-video history
	PlaylistID          string `json:"playlistId"`          // Optional: YouTube playlist ID
	PrivacyStatus       string `json:"privacyStatus"`       // private, unlisted or public (default: public)
	CategoryID          string `json:"categoryId"`          // Overrides the category chosen at render time
	ExtraTags           string `json:"extraTags"`           // Comma separated tags added to every clip
	NotifySubscribers   bool   `json:"notifySubscribers"`   // Notify channel subscribers
	ScheduleTime        string `json:"scheduleTime"`        // Publish at this local time (HH:MM); empty publishes now
	SchedulePeriodicity int    `json:"schedulePeriodicity"` // Days between scheduled clips (default: 1)
	MaxUploads          int    `json:"maxUploads"`          // Upload at most this many clips (0: all)
	DryRun              bool   `json:"dryRun"`              // Log what would be uploaded
}

// New creates a new upload module
func New() modules.Module {
	return NewWithService(&youtubesvc.Service{})
}

// NewWithService creates an upload module with a custom YouTube service
func NewWithService(service youtubesvc.YouTubeService) modules.Module {
	return &Module{
		youtubeService: service,
		credentials:    youtubesvc.CredentialsFromEnv,
		now:            time.Now,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "upload"
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

	switch p.PrivacyStatus {
	case "", "private", "unlisted", "public":
	default:
		return &utils.ValidationError{Field: "privacyStatus", Message: fmt.Sprintf("invalid privacy status: %s", p.PrivacyStatus)}
	}
	if p.ScheduleTime != "" {
		if _, _, err := utils.ParseClockTime(p.ScheduleTime); err != nil {
			return &utils.ValidationError{Field: "scheduleTime", Message: "expected HH:MM", Err: err}
		}
	}
	if p.SchedulePeriodicity < 0 || p.MaxUploads < 0 {
		return &utils.ValidationError{Field: "schedulePeriodicity", Message: "schedulePeriodicity and maxUploads must not be negative"}
	}

	if !p.DryRun && !m.credentials().CanUpload() {
		return &utils.ValidationError{
			Field:   "credentials",
			Message: "set YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN, or GOOGLE_APPLICATION_CREDENTIALS",
			Err:     youtubesvc.ErrAuth,
		}
	}
	return nil
}

// Execute uploads every clip in the input folder that has not been uploaded yet
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	clipsDir := utils.ResolveOutputPath(p.Input, p.Output)
	pending, err := pendingClips(clipsDir, p.MaxUploads)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	if len(pending) == 0 {
		utils.LogInfo("No clips waiting for upload in %s", clipsDir)
		return m.result(p, 0, 0, nil), nil
	}

	slots, err := publishSlots(m.now(), p.ScheduleTime, p.SchedulePeriodicity, len(pending))
	if err != nil {
		return modules.ModuleResult{}, err
	}

	if p.DryRun {
		for i, rec := range pending {
			utils.LogInfo("[dry run] would upload %s as %q%s", filepath.Base(rec.ClipPath), rec.Metadata.Title, slotSuffix(slots, i))
		}
		return m.result(p, 0, 0, nil), nil
	}

	var store *history.Store
	if p.HistoryFile != "" {
		if store, err = history.Open(p.HistoryFile); err != nil {
			return modules.ModuleResult{}, err
		}
	}

	service, err := m.youtubeService.InitializeYouTubeService(ctx, m.credentials())
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to initialize YouTube service: %w", err)
	}

	var uploaded []string
	failed := 0
	for i, rec := range pending {
		upload := m.videoUpload(p, rec)
		if slots != nil {
			upload.PublishAt = slots[i]
		}

		utils.LogInfo("Uploading %s (%d/%d)%s", filepath.Base(rec.ClipPath), i+1, len(pending), slotSuffix(slots, i))
		id, err := m.youtubeService.UploadVideo(ctx, service, upload)
		if err != nil {
			if youtubesvc.IsFatal(err) || ctx.Err() != nil {
				if err := saveHistory(store); err != nil {
					utils.LogError("%v", err)
				}
				return modules.ModuleResult{}, fmt.Errorf("upload of %s aborted: %w", filepath.Base(rec.ClipPath), err)
			}
			utils.LogError("Failed to upload %s: %v", filepath.Base(rec.ClipPath), err)
			failed++
			continue
		}

		now := m.now().UTC()
		rec.UploadedID = id
		rec.UploadedAt = &now
		if _, err := metadata.WriteSidecar(rec); err != nil {
			utils.LogWarning("Uploaded %s but could not update its sidecar: %v", id, err)
		}
		if store != nil {
			store.Record(rec.Source.ID, id)
		}
		utils.LogSuccess("Uploaded https://youtube.com/shorts/%s", id)
		uploaded = append(uploaded, id)
	}

	if err := saveHistory(store); err != nil {
		return modules.ModuleResult{}, err
	}
	if len(uploaded) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("all %d uploads failed", failed)
	}
	return m.result(p, len(uploaded), failed, uploaded), nil
}

func (m *Module) videoUpload(p Params, rec metadata.ClipRecord) youtubesvc.VideoUpload {
	category := rec.Metadata.CategoryID
	if p.CategoryID != "" {
		category = p.CategoryID
	}
	tags := append([]string{}, rec.Metadata.Tags...)
	tags = append(tags, youtubesvc.SplitTags(p.ExtraTags)...)

	privacy := p.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}
	return youtubesvc.VideoUpload{
		FilePath:          rec.ClipPath,
		Title:             rec.Metadata.Title,
		Description:       rec.Metadata.Description,
		Tags:              tags,
		CategoryID:        category,
		PrivacyStatus:     privacy,
		NotifySubscribers: p.NotifySubscribers,
		PlaylistID:        p.PlaylistID,
	}
}

func (m *Module) result(p Params, uploaded, failed int, ids []string) modules.ModuleResult {
	return modules.ModuleResult{
		Outputs: map[string]string{},
		Metadata: map[string]interface{}{
			"videoIds": ids,
			"dryRun":   p.DryRun,
		},
		Statistics: map[string]interface{}{
			"uploaded": uploaded,
			"failed":   failed,
		},
	}
}

// pendingClips returns the sidecars in dir that have not been uploaded yet,
// at most limit of them when limit is positive.
func pendingClips(dir string, limit int) ([]metadata.ClipRecord, error) {
	sidecars, err := metadata.FindSidecars(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}

	var pending []metadata.ClipRecord
	for _, path := range sidecars {
		rec, err := metadata.ReadSidecar(path)
		if err != nil {
			continue
		}
		if rec.Uploaded() {
			utils.LogVerbose("Skipping %s, already uploaded as %s", filepath.Base(rec.ClipPath), rec.UploadedID)
			continue
		}
		pending = append(pending, rec)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

// publishSlots returns one publish time per clip: the next occurrence of
// clock after now, then every periodicity days. An empty clock publishes
// immediately and yields nil.
func publishSlots(now time.Time, clock string, periodicity, n int) ([]time.Time, error) {
	if clock == "" {
		return nil, nil
	}
	hour, minute, err := utils.ParseClockTime(clock)
	if err != nil {
		return nil, err
	}
	if periodicity <= 0 {
		periodicity = 1
	}

	first := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !first.After(now) {
		first = first.AddDate(0, 0, 1)
	}
	slots := make([]time.Time, n)
	for i := range slots {
		slots[i] = first.AddDate(0, 0, i*periodicity)
	}
	return slots, nil
}

func slotSuffix(slots []time.Time, i int) string {
	if slots == nil {
		return ""
	}
	return fmt.Sprintf(", scheduled for %s", slots[i].Format("2006-01-02 15:04"))
}

func saveHistory(store *history.Store) error {
	if store == nil {
		return nil
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Folder holding rendered clips and their sidecars",
				Patterns:    []string{".mp4", metadata.SidecarExt},
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "historyFile",
				Description: "History file updated with uploaded source videos",
				Patterns:    []string{".json"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "playlistId",
				Description: "YouTube playlist ID",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "privacyStatus",
				Description: "Video privacy status (private, unlisted, public)",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "scheduleTime",
				Description: "Time to schedule videos (24-hour format)",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "videoIds",
				Description: "Ids of the uploaded videos",
				Patterns:    []string{"*"},
				Type:        string(modules.OutputTypeData),
			},
		},
	}
}
