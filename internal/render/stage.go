package render

import "fmt"

// Status is the outcome of one render stage.
type Status int

const (
	// Success means the stage produced its own output.
	Success Status = iota
	// Degraded means the stage failed and the previous output was carried forward.
	Degraded
	// Failed means the stage failed and nothing could be carried forward.
	Failed
	// Skipped means the stage had nothing to do (for example no captions).
	Skipped
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status by name in sidecars.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Success, Degraded, Failed, Skipped} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown stage status %q", text)
}

// Stage names, in pipeline order.
const (
	StageExtract  = "extract"
	StageFrame    = "frame"
	StageGrade    = "grade"
	StageCaptions = "captions"
	StageCredit   = "credit"
	StageMusic    = "music"
	StageFinal    = "final"
)

// StageResult records what one stage did.
type StageResult struct {
	Stage  string `json:"stage"`
	Status Status `json:"status"`
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

func newResult(stage string, status Status, output string, err error) StageResult {
	r := StageResult{Stage: stage, Status: status, Output: output, Err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
