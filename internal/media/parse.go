package media

import (
	"regexp"
	"strconv"
	"strings"
)

var durationPattern = regexp.MustCompile(`Duration:\s*(\d{2,}):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseDuration extracts the "Duration: HH:MM:SS.ss" value from transcoder
// diagnostics. ok is false when no duration is present.
func ParseDuration(output string) (seconds float64, ok bool) {
	match := durationPattern.FindStringSubmatch(output)
	if match == nil {
		return 0, false
	}

	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}

	return float64(hours*3600+minutes*60) + secs, true
}

// ParseLoudness extracts mean_volume and max_volume from volumedetect output.
// ok is false unless both values were found.
func ParseLoudness(output string) (Loudness, bool) {
	var stats Loudness
	var haveMean, haveMax bool

	for _, line := range strings.Split(output, "\n") {
		if v, found := valueAfter(line, "mean_volume:"); found {
			stats.MeanVolume = v
			haveMean = true
		} else if v, found := valueAfter(line, "max_volume:"); found {
			stats.MaxVolume = v
			haveMax = true
		}
	}

	return stats, haveMean && haveMax
}

// CountSceneMarkers counts the frames showinfo printed after the scene
// select filter, one "pts_time:" entry per detected change.
func CountSceneMarkers(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "showinfo") && strings.Contains(line, "pts_time:") {
			count++
		}
	}
	return count
}

func valueAfter(line, key string) (float64, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len(key):])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
