package annotate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
)

func testAnnotation() *annotate.Annotation {
	return &annotate.Annotation{
		Tokens: []annotate.Token{
			{Text: "My", Tag: "PRP$"},
			{Text: "dog", Tag: "NN"},
			{Text: "Biscuit", Tag: "NNP"},
			{Text: "is", Tag: "VBZ"},
			{Text: "great", Tag: "JJ"},
		},
	}
}

func TestIsProperNoun(t *testing.T) {
	ann := testAnnotation()

	assert.True(t, ann.IsProperNoun("Biscuit"))
	assert.True(t, ann.IsProperNoun("biscuit"), "check is case-insensitive")
	assert.False(t, ann.IsProperNoun("dog"), "NN is not a proper noun tag")
	assert.False(t, ann.IsProperNoun("missing"))
}

func TestIsAdjective(t *testing.T) {
	ann := testAnnotation()

	assert.True(t, ann.IsAdjective("great"))
	assert.True(t, ann.IsAdjective("GREAT"))
	assert.False(t, ann.IsAdjective("dog"))
}

func TestContainsAnyWord(t *testing.T) {
	ann := testAnnotation()

	assert.True(t, ann.ContainsAnyWord("my"))
	assert.True(t, ann.ContainsAnyWord("nope", "dog"))
	assert.False(t, ann.ContainsAnyWord("cat", "fish"))
	assert.False(t, ann.ContainsAnyWord("do"), "prefixes are not whole tokens")
}
