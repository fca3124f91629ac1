// Package sentiment provides lexicon-based polarity scoring for chat messages.
//
// The scorer is intentionally a rule-based heuristic: it counts occurrences of
// words from a fixed positive/negative lexicon and returns a signed integer
// score. It is pure, stateless, and deterministic for a given lexicon, so it
// is safe to share across concurrent requests.
package sentiment

import (
	"strings"
	"unicode"
)

// Polarity thresholds shared by the entity extractor and the relevance ranker.
// A message is treated as positive only when its score is strictly greater
// than PositiveThreshold, and negative only when strictly less than
// NegativeThreshold. Both consumers must use these constants so the write and
// read paths stay consistent.
const (
	PositiveThreshold = 2
	NegativeThreshold = -2
)

// Tag values derived from the numeric thresholds.
const (
	TagPositive = "positive"
	TagNegative = "negative"
)

// Lexicon is the word list configuration for a Scorer.
//
// Lexicons are injected at construction time rather than hard-coded so tests
// and alternate deployments can supply their own word lists.
type Lexicon struct {
	// Positive words add +1 to the score per occurrence.
	Positive []string

	// Negative words add -1 to the score per occurrence.
	Negative []string
}

// DefaultLexicon returns the built-in English lexicon.
//
// The emotion words documented for memory tagging (happy, sad, angry, anxious,
// excited, joyful) are all present so the extractor's literal-word emotion
// signal and the scorer's numeric signal agree on vocabulary.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"happy", "joy", "joyful", "excited", "great", "good", "wonderful",
			"amazing", "love", "loved", "lovely", "calm", "peaceful", "proud",
			"grateful", "hopeful", "better", "relaxed", "fun", "glad",
			"awesome", "fantastic", "nice", "cheerful", "content", "thrilled",
		},
		Negative: []string{
			"sad", "angry", "anxious", "worried", "scared", "afraid", "bad",
			"terrible", "awful", "hate", "hated", "lonely", "depressed",
			"stressed", "tired", "exhausted", "upset", "hurt", "miserable",
			"hopeless", "worse", "cry", "crying", "fear", "angst", "horrible",
		},
	}
}

// Scorer scores the emotional polarity of a message.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewScorer creates a Scorer backed by the given lexicon.
func NewScorer(lex Lexicon) *Scorer {
	s := &Scorer{
		positive: make(map[string]struct{}, len(lex.Positive)),
		negative: make(map[string]struct{}, len(lex.Negative)),
	}
	for _, w := range lex.Positive {
		s.positive[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range lex.Negative {
		s.negative[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Score returns the signed polarity of text: positive values indicate a
// favorable tone, negative values an unfavorable one, zero is neutral or
// indeterminate. Each lexicon word occurrence contributes one point.
func (s *Scorer) Score(text string) int {
	score := 0
	for _, word := range Tokenize(text) {
		if _, ok := s.positive[word]; ok {
			score++
		}
		if _, ok := s.negative[word]; ok {
			score--
		}
	}
	return score
}

// Polarity maps a numeric score to a tag using the strict thresholds.
// Returns an empty string for neutral scores.
func Polarity(score int) string {
	switch {
	case score > PositiveThreshold:
		return TagPositive
	case score < NegativeThreshold:
		return TagNegative
	default:
		return ""
	}
}

// Tokenize lowercases text and splits it into word tokens. Apostrophes are
// kept inside words so contractions like "can't" survive as single tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
