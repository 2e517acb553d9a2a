package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/utils"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is read when --settings is not given. Its absence is
// not an error.
const DefaultSettingsFile = "viralshorts.yaml"

// Duration is a time.Duration written as "90m" or "1h" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Settings are the long-lived options shared by every run.
type Settings struct {
	// HistoryFile records processed source videos.
	HistoryFile string `yaml:"historyFile"`
	// WorkDir receives one folder per run.
	WorkDir string `yaml:"workDir"`
	// LockFile guards against overlapping runs; defaults to HistoryFile + ".lock".
	LockFile string `yaml:"lockFile"`
	// Schedule lists the daily local times (HH:MM) a scheduled run fires.
	Schedule []string `yaml:"schedule"`
	// RunTimeout bounds a whole run.
	RunTimeout Duration `yaml:"runTimeout"`
	// RetryAttempts is how many times a failing step is attempted.
	RetryAttempts int `yaml:"retryAttempts"`
	// RetryBackoff is the pause between attempts.
	RetryBackoff Duration `yaml:"retryBackoff"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		HistoryFile:   "uploaded_videos.json",
		WorkDir:       "output",
		Schedule:      []string{"08:00", "20:00"},
		RunTimeout:    Duration(time.Hour),
		RetryAttempts: 1,
		RetryBackoff:  Duration(30 * time.Second),
	}
}

// LoadSettings reads path over the defaults. A missing DefaultSettingsFile
// yields the defaults; any other missing path is an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		path = DefaultSettingsFile
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && path == DefaultSettingsFile:
		utils.LogDebug("No %s found, using default settings", DefaultSettingsFile)
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	}

	if err := s.expandPaths(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) expandPaths() error {
	for _, p := range []*string{&s.HistoryFile, &s.WorkDir, &s.LockFile} {
		expanded, err := utils.ExpandHomeDir(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	if s.LockFile == "" {
		s.LockFile = s.HistoryFile + ".lock"
	}
	return nil
}

// Validate checks times and durations.
func (s *Settings) Validate() error {
	if s.HistoryFile == "" {
		return &utils.ValidationError{Field: "historyFile", Message: "history file is required"}
	}
	if s.WorkDir == "" {
		return &utils.ValidationError{Field: "workDir", Message: "work directory is required"}
	}
	for _, t := range s.Schedule {
		if _, _, err := utils.ParseClockTime(t); err != nil {
			return &utils.ValidationError{Field: "schedule", Message: "invalid schedule time", Err: err}
		}
	}
	if s.RunTimeout <= 0 {
		return &utils.ValidationError{Field: "runTimeout", Message: "run timeout must be positive"}
	}
	if s.RetryAttempts < 1 {
		return &utils.ValidationError{Field: "retryAttempts", Message: fmt.Sprintf("must be at least 1, got %d", s.RetryAttempts)}
	}
	if s.RetryBackoff < 0 {
		return &utils.ValidationError{Field: "retryBackoff", Message: "retry backoff must not be negative"}
	}
	return nil
}

// Timeout returns RunTimeout as a time.Duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.RunTimeout)
}
