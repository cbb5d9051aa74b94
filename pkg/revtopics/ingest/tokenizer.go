package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/revtopics/pkg/revtopics/stoplist"
)

// MinTokenLen is the shortest token kept; single characters carry no topic signal.
const MinTokenLen = 2

// Tokenizer splits cleaned review text on word boundaries and drops stopwords.
type Tokenizer struct {
	stops      *stoplist.Manager
	normalizer func(string) string // Optional: applied before splitting
}

// NewTokenizer creates a tokenizer filtering against stops. A nil manager
// keeps every token.
func NewTokenizer(stops *stoplist.Manager) *Tokenizer {
	return &Tokenizer{stops: stops}
}

// Stoplist returns the stopword set the tokenizer filters against.
func (t *Tokenizer) Stoplist() *stoplist.Manager {
	return t.stops
}

// SetNormalizer assigns a text normalizer run before tokenization.
// Example: normalize.Text turns "<b>GREAT</b>!" into "great".
func (t *Tokenizer) SetNormalizer(fn func(string) string) {
	t.normalizer = fn
}

// Tokenize splits text into lowercase tokens, removing stopwords.
// A token is a run of letters, digits, or underscores.
func (t *Tokenizer) Tokenize(text string) []string {
	if t.normalizer != nil {
		text = t.normalizer(text)
	}

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies the length floor and stopword filtering.
func (t *Tokenizer) processToken(word string) string {
	if utf8.RuneCountInString(word) < MinTokenLen {
		return ""
	}
	if t.stops.IsStop(word) {
		return ""
	}
	return word
}
