// Package transcribe runs the speech-to-text engine and models its output.
package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Word is a single timed word, present when word timestamps were requested.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one timed span of speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the subset of the whisper JSON output the pipeline uses.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// LoadJSON reads a whisper JSON transcript.
func LoadJSON(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
	}
	return &t, nil
}

// Load reads a transcript in JSON or SRT form, chosen by extension.
func Load(path string) (*Transcript, error) {
	if strings.EqualFold(filepath.Ext(path), ".srt") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript: %w", err)
		}
		defer f.Close()
		return ParseSRT(f)
	}
	return LoadJSON(path)
}

// Overlapping returns the segments that share time with [start, end).
func (t *Transcript) Overlapping(start, end float64) []Segment {
	if t == nil {
		return nil
	}
	var out []Segment
	for _, s := range t.Segments {
		if s.Start < end && s.End > start {
			out = append(out, s)
		}
	}
	return out
}

// TextBetween joins the text of every segment overlapping [start, end).
func (t *Transcript) TextBetween(start, end float64) string {
	var parts []string
	for _, s := range t.Overlapping(start, end) {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Window returns the segments overlapping [start, end) re-based so that start
// becomes zero, with times clipped to the window.
func (t *Transcript) Window(start, end float64) []Segment {
	overlapping := t.Overlapping(start, end)
	out := make([]Segment, 0, len(overlapping))
	length := end - start
	for _, s := range overlapping {
		rebased := Segment{
			Start: clip(s.Start-start, 0, length),
			End:   clip(s.End-start, 0, length),
			Text:  s.Text,
		}
		for _, w := range s.Words {
			if w.End <= start || w.Start >= end {
				continue
			}
			rebased.Words = append(rebased.Words, Word{
				Word:  w.Word,
				Start: clip(w.Start-start, 0, length),
				End:   clip(w.End-start, 0, length),
			})
		}
		if rebased.End > rebased.Start {
			out = append(out, rebased)
		}
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
