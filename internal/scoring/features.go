package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/gnzdotmx/viralshorts/internal/media"
)

// MaxClampedScore bounds the audio and scene features.
const MaxClampedScore = 10.0

// Features holds the four raw feature scores of one window.
type Features struct {
	Audio     float64 `json:"audio"`
	Keyword   float64 `json:"keyword"`
	Sentiment float64 `json:"sentiment"`
	Scene     float64 `json:"scene"`
}

// NormalizeVolume maps a volumedetect dB reading to [0, 10] via (|v|-10)/5.
func NormalizeVolume(db float64) float64 {
	return clamp((math.Abs(db)-10)/5, 0, MaxClampedScore)
}

// AudioScore averages the normalized mean and peak volumes.
func AudioScore(l media.Loudness) float64 {
	return (NormalizeVolume(l.MeanVolume) + NormalizeVolume(l.MaxVolume)) / 2
}

// SceneScore is min(count*2, 10).
func SceneScore(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(float64(count)*2, MaxClampedScore)
}

// KeywordScore sums weighted keyword hits in text and returns the matched
// keywords in order of first appearance.
func (lx Lexicon) KeywordScore(text string) (float64, []string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, nil
	}

	type hit struct {
		keyword string
		first   int
	}
	var score float64
	var hits []hit
	seen := make(map[string]bool)

	categories := []struct {
		words  []string
		weight float64
	}{
		{lx.Hooks, HookWeight},
		{lx.Questions, QuestionWeight},
		{lx.Topics, TopicWeight},
	}
	for _, cat := range categories {
		for _, kw := range cat.words {
			count, first := countPhrase(tokens, tokenize(kw))
			if count == 0 {
				continue
			}
			score += float64(count) * cat.weight
			if !seen[kw] {
				seen[kw] = true
				hits = append(hits, hit{keyword: kw, first: first})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].first < hits[j].first })
	matched := make([]string, len(hits))
	for i, h := range hits {
		matched[i] = h.keyword
	}
	return score, matched
}

// SentimentScore sums weighted hits of the three sentiment lists. It is not
// capped.
func (lx Lexicon) SentimentScore(text string) float64 {
	lower := strings.ToLower(text)
	tokens := tokenize(text)

	var score float64
	for _, list := range []struct {
		words  []string
		weight float64
	}{
		{lx.Positive, PositiveWeight},
		{lx.Negative, NegativeWeight},
		{lx.Excitement, ExcitementWeight},
	} {
		for _, w := range list.words {
			score += float64(countEntry(lower, tokens, w)) * list.weight
		}
	}
	return score
}

// countEntry counts a lexicon entry. Entries without letters or digits, such
// as "!", are matched as raw substrings.
func countEntry(lower string, tokens []string, entry string) int {
	phrase := tokenize(entry)
	if len(phrase) == 0 {
		if entry == "" {
			return 0
		}
		return strings.Count(lower, entry)
	}
	n, _ := countPhrase(tokens, phrase)
	return n
}

// countPhrase counts occurrences of phrase in tokens and the index of the first.
func countPhrase(tokens, phrase []string) (count, first int) {
	first = -1
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return 0, first
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			if count == 0 {
				first = i
			}
			count++
		}
	}
	return count, first
}

func tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
