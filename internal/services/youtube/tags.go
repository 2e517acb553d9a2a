package youtube

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTagLength = 30
	maxTags      = 30
)

// CleanTag lower-cases a tag and strips accents and the characters YouTube
// rejects.
func CleanTag(tag string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, tag)
	if err != nil {
		folded = tag
	}

	folded = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', ',', '#':
			return -1
		}
		return r
	}, folded)

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// ProcessTags cleans, deduplicates and limits tags for upload.
func ProcessTags(tags []string) []string {
	seen := make(map[string]bool)
	var cleaned []string
	for _, tag := range tags {
		c := CleanTag(tag)
		if c == "" || len([]rune(c)) > maxTagLength || seen[c] {
			continue
		}
		seen[c] = true
		cleaned = append(cleaned, c)
		if len(cleaned) == maxTags {
			break
		}
	}
	return cleaned
}

// SplitTags splits a comma separated tag list.
func SplitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	return strings.Split(tags, ",")
}
