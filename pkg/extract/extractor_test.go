package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/extract"
	"github.com/mindwell-labs/mindmem-go/pkg/sentiment"
)

// fakeAnnotator tags whitespace tokens from a fixed word-to-tag map and
// returns preset entity spans, so extraction tests don't depend on the
// statistical tagger.
type fakeAnnotator struct {
	tags   map[string]string
	people []string
	places []string
}

func (f *fakeAnnotator) Annotate(text string) (*annotate.Annotation, error) {
	ann := &annotate.Annotation{People: f.people, Places: f.places}
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" {
			continue
		}
		tag := f.tags[strings.ToLower(w)]
		if tag == "" {
			tag = "XX"
		}
		ann.Tokens = append(ann.Tokens, annotate.Token{Text: w, Tag: tag})
		switch {
		case tag == "NN":
			ann.Nouns = append(ann.Nouns, annotate.Noun{Text: w})
		case tag == "NNS":
			ann.Nouns = append(ann.Nouns, annotate.Noun{Text: w, Plural: true})
		case strings.HasPrefix(tag, "JJ"):
			ann.Adjectives = append(ann.Adjectives, w)
		case strings.HasPrefix(tag, "VB"):
			ann.Verbs = append(ann.Verbs, w)
		}
	}
	return ann, nil
}

func newExtractor(ann annotate.Annotator) *extract.Extractor {
	return extract.New(ann, sentiment.NewScorer(sentiment.DefaultLexicon()), nil)
}

func TestExtractRequiresFirstPerson(t *testing.T) {
	ann := &fakeAnnotator{people: []string{"Sarah"}, places: []string{"Paris"}}
	e := newExtractor(ann)

	// Entities present but the message is about someone else.
	assert.Nil(t, e.Extract("Sarah went to Paris"))
}

func TestExtractRequiresAtLeastOneCategory(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	// First person present but nothing extractable.
	assert.Nil(t, e.Extract("I slept"))
}

func TestExtractPeopleAndLocations(t *testing.T) {
	ann := &fakeAnnotator{people: []string{"Sarah"}, places: []string{"Portland"}}
	e := newExtractor(ann)

	facts := e.Extract("I saw Sarah in Portland")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"Sarah"}, facts.People)
	assert.Equal(t, []string{"Portland"}, facts.Locations)
}

func TestExtractLikesAndDislikes(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	facts := e.Extract("I love hiking in the mountains. I can't stand traffic and crowded trains.")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"hiking in the mountains"}, facts.Likes)
	// Dislike clause is trimmed at the coordinating conjunction.
	assert.Equal(t, []string{"traffic"}, facts.Dislikes)
}

func TestExtractGoalsTakesTextAfterLastTrigger(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	facts := e.Extract("I want to learn to paint")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"paint"}, facts.Goals)

	facts = e.Extract("My goal is to run a marathon")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"run a marathon"}, facts.Goals)
}

func TestExtractPetsRequiresProperNoun(t *testing.T) {
	ann := &fakeAnnotator{tags: map[string]string{"biscuit": "NNP", "ran": "VBD"}}
	e := newExtractor(ann)

	facts := e.Extract("My dog Biscuit is great")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"Biscuit"}, facts.Pets)

	// "ran" is a verb continuation, not a name.
	assert.Nil(t, e.Extract("My dog ran away"))
}

func TestExtractPersonalityRequiresAdjective(t *testing.T) {
	ann := &fakeAnnotator{tags: map[string]string{"creative": "JJ", "doctor": "NN"}}
	e := newExtractor(ann)

	facts := e.Extract("I am a creative person")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"creative"}, facts.Personality)

	facts = e.Extract("I am a doctor")
	require.NotNil(t, facts)
	assert.Empty(t, facts.Personality)
	// The noun still lands in topics.
	assert.Equal(t, []string{"doctor"}, facts.Topics)
}

func TestExtractCombinedCategories(t *testing.T) {
	ann := &fakeAnnotator{tags: map[string]string{"max": "NNP", "cheerful": "JJ"}}
	e := newExtractor(ann)

	facts := e.Extract("I love my dog Max and I'm a cheerful person")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"Max"}, facts.Pets)
	assert.Equal(t, []string{"cheerful"}, facts.Personality)
	assert.Equal(t, []string{"my dog Max"}, facts.Likes)
}

func TestExtractHobbies(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	facts := e.Extract("My hobby is woodworking")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"woodworking"}, facts.Hobbies)
}

func TestExtractTopicsCappedAtFive(t *testing.T) {
	ann := &fakeAnnotator{tags: map[string]string{
		"job": "NN", "house": "NN", "garden": "NN", "car": "NN",
		"bike": "NN", "boat": "NN", "plants": "NNS",
	}}
	e := newExtractor(ann)

	facts := e.Extract("I have a job house garden car bike boat plants")
	require.NotNil(t, facts)
	assert.Len(t, facts.Topics, 5)
	assert.Equal(t, []string{"job", "house", "garden", "car", "bike"}, facts.Topics)
	// Plural nouns never become topics.
	assert.NotContains(t, facts.Topics, "plants")
}

func TestExtractEmotionsMergesBothSignals(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	// Score +3 crosses the strict positive threshold, and each literal
	// occurrence is tagged; duplicates are kept.
	facts := e.Extract("I am happy happy happy today")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"positive", "happy", "happy", "happy"}, facts.Emotions)
}

func TestExtractEmotionsScoreAtThresholdIsNeutral(t *testing.T) {
	e := newExtractor(&fakeAnnotator{})

	// Score exactly +2: no polarity tag, literal words still tagged.
	facts := e.Extract("I am happy and grateful")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"happy", "grateful"}, facts.Emotions)
}

func TestExtractCustomEmotionWords(t *testing.T) {
	e := extract.New(&fakeAnnotator{}, sentiment.NewScorer(sentiment.DefaultLexicon()),
		&extract.Config{EmotionWords: []string{"wistful"}})

	facts := e.Extract("I feel wistful")
	require.NotNil(t, facts)
	assert.Equal(t, []string{"wistful"}, facts.Emotions)
}
