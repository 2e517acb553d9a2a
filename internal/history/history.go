// Package history persists the ids of source videos that were already turned
// into uploads, so a later run never processes them again.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gofrs/flock"
)

// TimeLayout is the layout of last_upload_time.
const TimeLayout = "2006-01-02 15:04:05"

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another run is already active")

// UploadRecord ties a processed source video to the time its clip went out.
type UploadRecord struct {
	VideoID         string    `json:"video_id"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	ClipID          string    `json:"clip_id,omitempty"`
}

// file is the on-disk layout.
type file struct {
	UploadedVideos []string       `json:"uploaded_videos"`
	LastUploadTime *string        `json:"last_upload_time"`
	Records        []UploadRecord `json:"records,omitempty"`
}

// Store is the in-memory history. It is read once at the start of a run and
// saved at the end; it is not safe for concurrent use.
type Store struct {
	path string
	data file
	seen map[string]bool
	now  func() time.Time
}

// Open loads the history at path. A missing file yields an empty history.
func Open(path string) (*Store, error) {
	expanded, err := utils.ExpandHomeDir(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: expanded, seen: make(map[string]bool), now: time.Now}
	if err := utils.ReadJSONFile(expanded, &s.data); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		utils.LogVerbose("No history at %s, starting fresh", expanded)
	}
	for _, id := range s.data.UploadedVideos {
		s.seen[id] = true
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Seen reports whether id was processed before.
func (s *Store) Seen(id string) bool {
	return s.seen[id]
}

// Len returns the number of processed ids.
func (s *Store) Len() int {
	return len(s.data.UploadedVideos)
}

// IDs returns the processed ids in insertion order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.data.UploadedVideos...)
}

// Records returns upload records, newest first.
func (s *Store) Records() []UploadRecord {
	records := append([]UploadRecord(nil), s.data.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadTimestamp.After(records[j].UploadTimestamp)
	})
	return records
}

// LastUpload returns the time of the most recent upload, if any.
func (s *Store) LastUpload() (time.Time, bool) {
	if s.data.LastUploadTime == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, *s.data.LastUploadTime, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Record marks videoID as processed by an upload of clipID. Recording the
// same id again only refreshes the timestamps.
func (s *Store) Record(videoID, clipID string) UploadRecord {
	now := s.now()
	rec := UploadRecord{VideoID: videoID, UploadTimestamp: now.UTC(), ClipID: clipID}

	if !s.seen[videoID] {
		s.seen[videoID] = true
		s.data.UploadedVideos = append(s.data.UploadedVideos, videoID)
	}
	s.data.Records = append(s.data.Records, rec)
	last := now.Format(TimeLayout)
	s.data.LastUploadTime = &last
	return rec
}

// Forget removes videoID and its records. It reports whether anything changed.
func (s *Store) Forget(videoID string) bool {
	if !s.seen[videoID] {
		return false
	}
	delete(s.seen, videoID)

	ids := s.data.UploadedVideos[:0]
	for _, id := range s.data.UploadedVideos {
		if id != videoID {
			ids = append(ids, id)
		}
	}
	s.data.UploadedVideos = ids

	records := s.data.Records[:0]
	for _, r := range s.data.Records {
		if r.VideoID != videoID {
			records = append(records, r)
		}
	}
	s.data.Records = records
	return true
}

// Save writes the history back to disk.
func (s *Store) Save() error {
	if s.data.UploadedVideos == nil {
		s.data.UploadedVideos = []string{}
	}
	if err := utils.WriteJSONFile(s.path, s.data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Lock takes the single-run lock at path without waiting. The returned
// function releases it.
func Lock(path string) (func() error, error) {
	expanded, err := utils.ExpandHomeDir(path)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(filepath.Dir(expanded)); err != nil {
		return nil, err
	}

	lock := flock.New(expanded)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock held: %s)", ErrLocked, expanded)
	}
	utils.LogDebug("Acquired run lock %s", expanded)
	return lock.Unlock, nil
}
