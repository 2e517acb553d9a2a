package transcribe

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// FormatTimestamp renders seconds as an SRT "HH:MM:SS,mmm" timestamp.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	hours := totalMs / 3_600_000
	totalMs %= 3_600_000
	minutes := totalMs / 60_000
	totalMs %= 60_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, totalMs/1000, totalMs%1000)
}

// ParseTimestamp parses an SRT timestamp into seconds.
func ParseTimestamp(timestamp string) (float64, error) {
	var hours, minutes, seconds, milliseconds int
	n, err := fmt.Sscanf(strings.TrimSpace(timestamp), "%d:%d:%d,%d", &hours, &minutes, &seconds, &milliseconds)
	if err != nil {
		return 0, fmt.Errorf("failed to parse timestamp %q: %w", timestamp, err)
	}
	if n != 4 {
		return 0, fmt.Errorf("invalid timestamp format: %q", timestamp)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || milliseconds < 0 || milliseconds > 999 {
		return 0, fmt.Errorf("timestamp out of range: %q", timestamp)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(milliseconds)/1000, nil
}

// WriteSRT writes segments as 1-based SRT cues with upper-cased text. Empty
// segments are skipped.
func WriteSRT(w io.Writer, segments []Segment) error {
	index := 1
	for _, s := range segments {
		text := strings.ToUpper(strings.TrimSpace(s.Text))
		if text == "" || s.End <= s.Start {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", index, FormatTimestamp(s.Start), FormatTimestamp(s.End), text); err != nil {
			return fmt.Errorf("failed to write cue %d: %w", index, err)
		}
		index++
	}
	return nil
}

// WriteSRTFile writes the window [start, end) of t as an SRT file whose times
// start at zero. It returns the number of cues written.
func WriteSRTFile(path string, t *Transcript, start, end float64) (int, error) {
	segments := t.Window(start, end)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create subtitle file: %w", err)
	}
	if err := WriteSRT(f, segments); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close subtitle file: %w", err)
	}

	cues := 0
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			cues++
		}
	}
	return cues, nil
}

// ParseSRT reads SRT cues into a transcript.
func ParseSRT(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	t := &Transcript{}
	var block []string

	flush := func() error {
		defer func() { block = nil }()
		if len(block) < 2 {
			return nil
		}
		// The index line is optional in practice; find the timing line.
		timing := 0
		for timing < len(block) && !strings.Contains(block[timing], "-->") {
			timing++
		}
		if timing == len(block) {
			return nil
		}
		parts := strings.SplitN(block[timing], "-->", 2)
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			return err
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			return err
		}
		text := strings.Join(block[timing+1:], " ")
		t.Segments = append(t.Segments, Segment{Start: start, End: end, Text: text})
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitles: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		texts = append(texts, s.Text)
	}
	t.Text = strings.Join(texts, " ")
	return t, nil
}
