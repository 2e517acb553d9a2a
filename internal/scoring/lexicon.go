package scoring

// Lexicon holds the word lists used by the keyword and sentiment features.
// Entries are lower-case and may contain spaces.
type Lexicon struct {
	Hooks     []string `json:"hooks" yaml:"hooks"`
	Questions []string `json:"questions" yaml:"questions"`
	Topics    []string `json:"topics" yaml:"topics"`

	Positive   []string `json:"positive" yaml:"positive"`
	Negative   []string `json:"negative" yaml:"negative"`
	Excitement []string `json:"excitement" yaml:"excitement"`
}

// Keyword category weights.
const (
	HookWeight     = 3.0
	QuestionWeight = 2.0
	TopicWeight    = 1.0
)

// Sentiment weights per hit.
const (
	PositiveWeight   = 1.5
	NegativeWeight   = 2.0
	ExcitementWeight = 2.5
)

// DefaultLexicon returns the built-in English word lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Hooks: []string{
			"wait for it", "watch this", "you won't believe", "no way",
			"secret", "shocking", "insane", "crazy", "unbelievable",
			"mind blowing", "never seen", "plot twist", "epic", "hack",
			"mistake", "truth", "exposed", "viral",
		},
		Questions: []string{
			"what", "why", "how", "who", "did you know", "have you ever",
			"can you", "what if", "guess what",
		},
		Topics: []string{
			"money", "challenge", "funny", "prank", "reaction", "fail",
			"win", "record", "first time", "best", "worst", "free",
			"million", "fight", "love", "scary", "roast", "comedy",
		},
		Positive: []string{
			"amazing", "awesome", "love", "great", "beautiful", "perfect",
			"happy", "incredible", "best", "fantastic", "wonderful", "cool",
		},
		Negative: []string{
			"hate", "terrible", "worst", "awful", "angry", "sad", "disaster",
			"horrible", "scared", "fail", "wrong", "danger",
		},
		Excitement: []string{
			"wow", "omg", "oh my god", "whoa", "yes", "let's go", "insane",
			"crazy", "unbelievable", "holy", "!",
		},
	}
}
