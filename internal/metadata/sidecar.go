package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/render"
	"github.com/gnzdotmx/viralshorts/internal/scoring"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/google/uuid"
)

// SidecarExt is the extension of the record written next to each clip.
const SidecarExt = ".json"

// ClipRecord is the sidecar persisted next to a rendered clip. It carries
// everything the upload step needs, so clips can be uploaded in a later run.
type ClipRecord struct {
	RunID     string                `json:"run_id"`
	CreatedAt time.Time             `json:"created_at"`
	Source    discovery.SourceVideo `json:"source"`
	ClipPath  string                `json:"clip_path"`

	StartTime  float64         `json:"start_time"`
	Duration   float64         `json:"duration"`
	ViralScore float64         `json:"viral_score"`
	Segment    scoring.Segment `json:"segment"`

	Degraded bool                 `json:"degraded"`
	Stages   []render.StageResult `json:"stages,omitempty"`

	Metadata Metadata `json:"metadata"`

	// Set once the clip is uploaded.
	UploadedID string     `json:"uploaded_id,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

// NewRunID returns an identifier shared by every record of one run.
func NewRunID() string {
	return uuid.NewString()
}

// NewClipRecord assembles the record for a rendered clip.
func NewClipRecord(runID string, source discovery.SourceVideo, clip render.Clip, meta Metadata) ClipRecord {
	return ClipRecord{
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		ClipPath:   clip.OutputPath,
		StartTime:  clip.StartTime,
		Duration:   clip.Duration,
		ViralScore: clip.ViralScore,
		Segment:    clip.Segment,
		Degraded:   clip.Degraded(),
		Stages:     clip.Stages,
		Metadata:   meta,
	}
}

// Uploaded reports whether the clip has been published.
func (r ClipRecord) Uploaded() bool {
	return r.UploadedID != ""
}

// SidecarPath returns the sidecar location for a clip file.
func SidecarPath(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + SidecarExt
}

// WriteSidecar stores the record next to its clip and returns the path.
func WriteSidecar(rec ClipRecord) (string, error) {
	if rec.ClipPath == "" {
		return "", fmt.Errorf("clip record has no clip path")
	}
	path := SidecarPath(rec.ClipPath)
	// The sidecar sits next to the clip, so only the file name is stored.
	rec.ClipPath = filepath.Base(rec.ClipPath)
	if err := utils.WriteJSONFile(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSidecar loads a record. A relative clip path is resolved against the
// sidecar's directory.
func ReadSidecar(path string) (ClipRecord, error) {
	var rec ClipRecord
	if err := utils.ReadJSONFile(path, &rec); err != nil {
		return ClipRecord{}, err
	}
	if rec.ClipPath == "" {
		return ClipRecord{}, fmt.Errorf("sidecar %s has no clip path", path)
	}
	if !filepath.IsAbs(rec.ClipPath) {
		rec.ClipPath = filepath.Join(filepath.Dir(path), rec.ClipPath)
	}
	return rec, nil
}

// FindSidecars returns the sidecars in dir whose clip file exists, sorted by
// name. Unreadable sidecars are skipped with a warning.
func FindSidecars(dir string) ([]string, error) {
	files, err := utils.ListFiles(dir, SidecarExt)
	if err != nil {
		return nil, err
	}

	var sidecars []string
	for _, f := range files {
		rec, err := ReadSidecar(f)
		if err != nil {
			utils.LogDebug("Ignoring %s: %v", f, err)
			continue
		}
		if _, err := os.Stat(rec.ClipPath); err != nil {
			utils.LogWarning("Clip for %s is missing: %s", filepath.Base(f), rec.ClipPath)
			continue
		}
		sidecars = append(sidecars, f)
	}
	return sidecars, nil
}
