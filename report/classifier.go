package report

import (
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"
)

// Classifier scores a piece of text for profanity. Classify returns 1 for
// profane text and 0 otherwise. Implementations must be pure functions of
// the input text.
type Classifier interface {
	Classify(text string) int
}

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// tokenize splits free-form text into lower-case tokens, stripping
// punctuation, for fast matching against a known wordlist.
func tokenize(text string) []string {
	split := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	return strings.Fields(split)
}

// WordlistClassifier flags text containing any token from a fixed wordlist.
// It stands in for an external classification model behind the same
// interface.
type WordlistClassifier struct {
	words map[string]bool
}

func NewWordlistClassifier(words []string) *WordlistClassifier {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = true
	}
	return &WordlistClassifier{words: m}
}

// LoadWordlistJSON reads a JSON array of words from a file.
func LoadWordlistJSON(p string) (*WordlistClassifier, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, err
	}
	return NewWordlistClassifier(words), nil
}

func (c *WordlistClassifier) Classify(text string) int {
	for _, tok := range tokenize(text) {
		if c.words[tok] {
			return 1
		}
	}
	return 0
}
