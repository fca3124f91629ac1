// Package extract turns free-text chat messages into structured facts.
//
// Extraction is rule-based by design: part-of-speech patterns and a fixed
// emotion lexicon, no statistical model. A message only produces facts when it
// yields at least one non-empty category and contains first-person language;
// everything else is judged not memory-worthy.
package extract

import (
	"regexp"
	"strings"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/sentiment"
)

// maxTopics caps the topics category; all other categories are unbounded.
const maxTopics = 5

// firstPersonMarkers gate extraction: a message with none of these as whole
// words is about someone else and is not stored.
var firstPersonMarkers = []string{"i", "my", "we", "our", "me"}

// Clause patterns. The captured remainder runs to the next punctuation mark
// and is trimmed at coordinating conjunctions afterwards.
var (
	likePattern        = regexp.MustCompile(`(?i)\b(?:likes?|loves?|enjoys?)\s+([^.!?,;:]+)`)
	dislikePattern     = regexp.MustCompile(`(?i)\b(?:hates?|dislikes?|can'?t stand|cannot stand)\s+([^.!?,;:]+)`)
	goalPattern        = regexp.MustCompile(`(?i)\b(?:want\s+to|going\s+to|plan\s+to|hope\s+to|goal\s+is\s+to)\s+[^.!?,;:]+`)
	petPattern         = regexp.MustCompile(`(?i)\b(?:my|our)\s+(?:dog|cat|pet)\s+([A-Za-z]+)`)
	hobbyPattern       = regexp.MustCompile(`(?i)\b(?:hobby|interest|passion)\s+is\s+([^.!?,;:]+)`)
	personalityPattern = regexp.MustCompile(`(?i)\b(?:i\s+am|i'm)\s+an?\s+([A-Za-z]+)`)
	conjunctionSplit   = regexp.MustCompile(`(?i)\s+(?:and|but|or|because|so)\s+`)
)

// goalTriggers are the tokens scanned inside a goal clause; the goal text is
// everything after the last trigger found.
var goalTriggers = map[string]struct{}{
	"want": {}, "going": {}, "plan": {}, "hope": {}, "goal": {}, "to": {}, "is": {},
}

// Facts is the structured bag of entities extracted from one message.
//
// Overlap between categories is allowed: a noun may appear in Topics and also
// inside a Likes phrase. Only Topics is truncated.
type Facts struct {
	People      []string
	Pets        []string
	Locations   []string
	Emotions    []string
	Topics      []string
	Likes       []string
	Dislikes    []string
	Goals       []string
	Hobbies     []string
	Personality []string
}

// Empty reports whether no category produced any value.
func (f *Facts) Empty() bool {
	return len(f.People) == 0 && len(f.Pets) == 0 && len(f.Locations) == 0 &&
		len(f.Emotions) == 0 && len(f.Topics) == 0 && len(f.Likes) == 0 &&
		len(f.Dislikes) == 0 && len(f.Goals) == 0 && len(f.Hobbies) == 0 &&
		len(f.Personality) == 0
}

// Config carries the injectable lexicons for an Extractor.
type Config struct {
	// EmotionWords are the literal words tagged verbatim into the emotions
	// category when present in a message.
	EmotionWords []string
}

// DefaultEmotionWords returns the built-in emotion vocabulary. It includes
// every tag the retrieval side queries for, so written memories stay findable.
func DefaultEmotionWords() []string {
	return []string{
		"happy", "sad", "angry", "anxious", "excited", "joyful",
		"scared", "lonely", "stressed", "calm", "proud", "grateful",
	}
}

// Extractor derives Facts from messages using an annotator and a sentiment
// scorer. It is stateless and safe for concurrent use.
type Extractor struct {
	ann      annotate.Annotator
	scorer   *sentiment.Scorer
	emotions map[string]struct{}
}

// New creates an Extractor. A nil config uses DefaultEmotionWords.
func New(ann annotate.Annotator, scorer *sentiment.Scorer, cfg *Config) *Extractor {
	words := DefaultEmotionWords()
	if cfg != nil && cfg.EmotionWords != nil {
		words = cfg.EmotionWords
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Extractor{ann: ann, scorer: scorer, emotions: set}
}

// Extract returns the facts found in message, or nil when the message is not
// memory-worthy. Annotation failures are swallowed: a broken message never
// fails the chat turn, it just produces no memory.
func (e *Extractor) Extract(message string) *Facts {
	ann, err := e.ann.Annotate(message)
	if err != nil || ann == nil {
		return nil
	}

	facts := &Facts{
		People:      append([]string(nil), ann.People...),
		Locations:   append([]string(nil), ann.Places...),
		Emotions:    e.extractEmotions(message),
		Likes:       extractClauses(likePattern, message),
		Dislikes:    extractClauses(dislikePattern, message),
		Goals:       extractGoals(message),
		Pets:        extractPets(message, ann),
		Hobbies:     extractClauses(hobbyPattern, message),
		Personality: extractPersonality(message, ann),
	}
	facts.Topics = extractTopics(ann)

	if facts.Empty() {
		return nil
	}
	if !ann.ContainsAnyWord(firstPersonMarkers...) {
		return nil
	}
	return facts
}

// extractEmotions merges the two emotion signals: the numeric polarity tag
// and every literal emotion-word occurrence. Duplicates are kept.
func (e *Extractor) extractEmotions(message string) []string {
	var out []string
	if tag := sentiment.Polarity(e.scorer.Score(message)); tag != "" {
		out = append(out, tag)
	}
	for _, word := range sentiment.Tokenize(message) {
		if _, ok := e.emotions[word]; ok {
			out = append(out, word)
		}
	}
	return out
}

// extractClauses collects the trimmed remainder of every clause matched by
// pattern. Clauses with nothing left after the trigger are discarded.
func extractClauses(pattern *regexp.Regexp, message string) []string {
	var out []string
	for _, m := range pattern.FindAllStringSubmatch(message, -1) {
		if v := trimClause(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// extractGoals scans each goal clause for trigger words and the connectives
// "to"/"is", and takes everything after the last one found.
func extractGoals(message string) []string {
	var out []string
	for _, clause := range goalPattern.FindAllString(message, -1) {
		tokens := strings.Fields(trimClause(clause))
		last := -1
		for i, tok := range tokens {
			if _, ok := goalTriggers[strings.ToLower(tok)]; ok {
				last = i
			}
		}
		if last >= 0 && last+1 < len(tokens) {
			out = append(out, strings.Join(tokens[last+1:], " "))
		}
	}
	return out
}

// extractPets accepts a pet name only when the annotator tagged it as a
// proper noun, which filters continuations like "my dog ran away".
func extractPets(message string, ann *annotate.Annotation) []string {
	var out []string
	for _, m := range petPattern.FindAllStringSubmatch(message, -1) {
		if name := m[1]; ann.IsProperNoun(name) {
			out = append(out, name)
		}
	}
	return out
}

// extractPersonality accepts "(i am|i'm) a <word>" only when <word> is tagged
// as an adjective.
func extractPersonality(message string, ann *annotate.Annotation) []string {
	var out []string
	for _, m := range personalityPattern.FindAllStringSubmatch(message, -1) {
		if trait := m[1]; ann.IsAdjective(trait) {
			out = append(out, trait)
		}
	}
	return out
}

// extractTopics takes singular common nouns not already claimed by the people
// or locations categories, capped at maxTopics in annotation order.
func extractTopics(ann *annotate.Annotation) []string {
	claimed := make(map[string]struct{})
	for _, span := range ann.People {
		for _, w := range strings.Fields(span) {
			claimed[strings.ToLower(w)] = struct{}{}
		}
	}
	for _, span := range ann.Places {
		for _, w := range strings.Fields(span) {
			claimed[strings.ToLower(w)] = struct{}{}
		}
	}

	var out []string
	for _, noun := range ann.Nouns {
		if noun.Plural {
			continue
		}
		if _, ok := claimed[strings.ToLower(noun.Text)]; ok {
			continue
		}
		out = append(out, noun.Text)
		if len(out) == maxTopics {
			break
		}
	}
	return out
}

// trimClause cuts a captured clause at the first coordinating conjunction and
// trims surrounding whitespace.
func trimClause(clause string) string {
	if loc := conjunctionSplit.FindStringIndex(clause); loc != nil {
		clause = clause[:loc[0]]
	}
	return strings.TrimSpace(clause)
}
