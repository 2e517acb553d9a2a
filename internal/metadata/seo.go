// Package metadata builds upload metadata for rendered clips and keeps it
// next to the clip in a JSON sidecar.
package metadata

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/gnzdotmx/viralshorts/internal/discovery"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxTitleLength is the platform limit for titles, in characters.
	MaxTitleLength = 100
	// MaxDescriptionLength is the platform limit for descriptions.
	MaxDescriptionLength = 5000

	// CategoryComedy is used for clips cut from channel scans.
	CategoryComedy = "23"
	// CategoryEntertainment is used for everything else.
	CategoryEntertainment = "24"

	// GenericTitle is used when there is no transcript to draw from.
	GenericTitle = "Must Watch! 😱 #Shorts"

	excerptLength  = 100
	titleHookWords = 5
	maxKeywordTags = 5
)

// BaseTags are added to every clip.
var BaseTags = []string{"shorts", "viral", "trending", "youtube shorts"}

// TitleTemplates receive the title-cased leading keyword.
var TitleTemplates = []string{
	"🔥 %s! #Shorts",
	"This is %s 😱 #Shorts",
	"Wait for it... %s 🔥",
	"%s Explained 🤯 #Shorts",
}

// Metadata is what the upload step sends with a clip.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
}

// Input gathers what metadata generation draws on.
type Input struct {
	Source   discovery.SourceVideo
	Keywords []string
	// Text is the transcript text of the clip window; empty in degraded mode.
	Text string
}

// Generate builds title, description, tags and category for a clip.
// Template choice is derived from the source id and the leading keyword so
// the same clip always gets the same title.
func Generate(in Input) Metadata {
	return Metadata{
		Title:       Title(in),
		Description: Description(in),
		Tags:        Tags(in),
		CategoryID:  Category(in.Source.Kind),
	}
}

// Title picks a keyword template, falling back to the first words of the
// transcript and finally to GenericTitle.
func Title(in Input) string {
	var title string
	switch {
	case len(in.Keywords) > 0:
		keyword := cases.Title(language.English).String(strings.TrimSpace(in.Keywords[0]))
		template := TitleTemplates[pick(in.Source.ID+"|"+keyword, len(TitleTemplates))]
		title = fmt.Sprintf(template, keyword)
	default:
		words := strings.Fields(in.Text)
		if len(words) > titleHookWords {
			title = fmt.Sprintf("🔥 %s... #Shorts", strings.Join(words[:titleHookWords], " "))
		} else {
			title = GenericTitle
		}
	}
	return truncate(title, MaxTitleLength)
}

// Description includes an excerpt, a credits block and hashtags.
func Description(in Input) string {
	var b strings.Builder

	if excerpt := strings.Join(strings.Fields(in.Text), " "); excerpt != "" {
		b.WriteString(truncate(excerpt, excerptLength))
		b.WriteString("\n\n")
	} else {
		b.WriteString("Wait for the end! 😱\n\n")
	}

	b.WriteString("Credits:\n")
	if in.Source.Title != "" {
		fmt.Fprintf(&b, "Original Video: %s\n", in.Source.Title)
	}
	if in.Source.Channel != "" {
		fmt.Fprintf(&b, "Channel: %s\n", in.Source.Channel)
	}
	if in.Source.URL != "" {
		fmt.Fprintf(&b, "Source: %s\n", in.Source.URL)
	}

	b.WriteString("\n")
	b.WriteString(strings.Join(Hashtags(in), " "))

	return truncate(b.String(), MaxDescriptionLength)
}

// Hashtags returns #shorts #viral plus the channel and keywords as hashtags.
func Hashtags(in Input) []string {
	tags := []string{"#shorts", "#viral"}
	seen := map[string]bool{"#shorts": true, "#viral": true}
	candidates := append([]string{in.Source.Channel}, limit(in.Keywords, maxKeywordTags)...)
	for _, c := range candidates {
		h := hashtag(c)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		tags = append(tags, h)
	}
	return tags
}

// Tags returns BaseTags, the channel name and up to five keywords, cleaned for
// upload.
func Tags(in Input) []string {
	tags := append([]string{}, BaseTags...)
	if in.Source.Channel != "" {
		tags = append(tags, in.Source.Channel)
	}
	tags = append(tags, limit(in.Keywords, maxKeywordTags)...)
	return youtube.ProcessTags(tags)
}

// Category maps a source kind to a platform category id.
func Category(kind string) string {
	if kind == discovery.KindChannel {
		return CategoryComedy
	}
	return CategoryEntertainment
}

func hashtag(s string) string {
	cleaned := strings.ReplaceAll(youtube.CleanTag(s), " ", "")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '!', '?', '.', '\'', '&':
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return ""
	}
	return "#" + cleaned
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

func pick(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
