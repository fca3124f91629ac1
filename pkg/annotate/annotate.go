// Package annotate provides grammatical annotation of chat messages.
//
// The Annotator interface is a capability contract: given raw text it answers
// which people and places are mentioned, which nouns, adjectives, and verbs
// occur, and whether a given word carries a given tag. The default
// implementation wraps the prose part-of-speech tagger and named-entity
// recognizer; consumers depend only on the interface so tests can substitute
// deterministic fakes.
package annotate

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Penn Treebank tag prefixes used to bucket tokens.
const (
	tagNounSingular = "NN"
	tagNounPlural   = "NNS"
	tagProperNoun   = "NNP"
	tagAdjective    = "JJ"
	tagVerb         = "VB"
	tagPronoun      = "PRP"
)

// Token is a single word with its part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Noun is a common noun with its number.
type Noun struct {
	Text   string
	Plural bool
}

// Annotation is the full grammatical reading of one message.
//
// All slices preserve the order of appearance in the source text.
type Annotation struct {
	// Tokens holds every word token with its tag.
	Tokens []Token

	// People are person-entity spans with pronouns filtered out.
	People []string

	// Places are location-entity spans, verbatim.
	Places []string

	// Nouns are common nouns (proper nouns excluded).
	Nouns []Noun

	// Adjectives and Verbs are the tokens tagged as such.
	Adjectives []string
	Verbs      []string
}

// IsProperNoun reports whether word appears anywhere in the text tagged as a
// proper noun. The check is case-insensitive.
func (a *Annotation) IsProperNoun(word string) bool {
	return a.hasTag(word, tagProperNoun)
}

// IsAdjective reports whether word appears anywhere in the text tagged as an
// adjective. The check is case-insensitive.
func (a *Annotation) IsAdjective(word string) bool {
	return a.hasTag(word, tagAdjective)
}

// ContainsAnyWord reports whether any of the given words occurs in the text
// as a whole token, case-insensitively.
func (a *Annotation) ContainsAnyWord(words ...string) bool {
	for _, tok := range a.Tokens {
		lower := strings.ToLower(tok.Text)
		for _, w := range words {
			if lower == strings.ToLower(w) {
				return true
			}
		}
	}
	return false
}

func (a *Annotation) hasTag(word, tagPrefix string) bool {
	lower := strings.ToLower(word)
	for _, tok := range a.Tokens {
		if strings.ToLower(tok.Text) == lower && strings.HasPrefix(tok.Tag, tagPrefix) {
			return true
		}
	}
	return false
}

// Annotator produces an Annotation for a message. Implementations must be
// pure and safe for concurrent use.
type Annotator interface {
	Annotate(text string) (*Annotation, error)
}

// ProseAnnotator implements Annotator with the prose tagger and NER model.
type ProseAnnotator struct{}

// NewProse creates the default prose-backed annotator.
func NewProse() *ProseAnnotator {
	return &ProseAnnotator{}
}

// Annotate runs tokenization, tagging, and entity extraction over text.
func (p *ProseAnnotator) Annotate(text string) (*Annotation, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	ann := &Annotation{}
	for _, tok := range doc.Tokens() {
		ann.Tokens = append(ann.Tokens, Token{Text: tok.Text, Tag: tok.Tag})
		switch {
		case tok.Tag == tagNounSingular:
			ann.Nouns = append(ann.Nouns, Noun{Text: tok.Text})
		case tok.Tag == tagNounPlural:
			ann.Nouns = append(ann.Nouns, Noun{Text: tok.Text, Plural: true})
		case strings.HasPrefix(tok.Tag, tagAdjective):
			ann.Adjectives = append(ann.Adjectives, tok.Text)
		case strings.HasPrefix(tok.Tag, tagVerb):
			ann.Verbs = append(ann.Verbs, tok.Text)
		}
	}

	for _, ent := range doc.Entities() {
		switch ent.Label {
		case "PERSON":
			if !p.isPronoun(ann, ent.Text) {
				ann.People = append(ann.People, ent.Text)
			}
		case "GPE", "LOC":
			ann.Places = append(ann.Places, ent.Text)
		}
	}

	return ann, nil
}

// isPronoun reports whether a single-word entity span is actually tagged as a
// pronoun ("he", "she", ...). Multi-word spans are never pronouns.
func (p *ProseAnnotator) isPronoun(ann *Annotation, span string) bool {
	if strings.ContainsRune(span, ' ') {
		return false
	}
	lower := strings.ToLower(span)
	for _, tok := range ann.Tokens {
		if strings.ToLower(tok.Text) == lower && strings.HasPrefix(tok.Tag, tagPronoun) {
			return true
		}
	}
	return false
}
