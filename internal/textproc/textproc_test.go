package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldsAndPositions(t *testing.T) {
	tokens := Normalize("Neural Network Training", "Jane Roe", "the network")

	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	require.Equal(t, []string{"neural", "network", "train", "jane", "roe", "network"}, terms)

	// Positions are global offsets over the field concatenation.
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
	assert.Equal(t, FieldTitle, tokens[0].Field)
	assert.Equal(t, FieldAuthors, tokens[3].Field)
	assert.Equal(t, FieldAbstract, tokens[5].Field)
}

func TestNormalizeDropsStopWordsWithoutPositionGaps(t *testing.T) {
	tokens := Normalize("the quick and the brown fox", "", "")
	require.Len(t, tokens, 3)
	assert.Equal(t, "quick", tokens[0].Term)
	assert.Equal(t, 0, tokens[0].Position)
	assert.Equal(t, "brown", tokens[1].Term)
	assert.Equal(t, 1, tokens[1].Position)
	assert.Equal(t, "fox", tokens[2].Term)
	assert.Equal(t, 2, tokens[2].Position)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize("", "", ""))
	assert.Empty(t, Normalize("the of and", "", ""), "all stop words")
	assert.Empty(t, Normalize("a I x", "", ""), "single-character words dropped")
}

func TestNormalizePunctuationAndCase(t *testing.T) {
	tokens := Normalize("Graph-Based Models, v2.0!", "", "")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	assert.Equal(t, []string{"graph", "bas", "model", "v2"}, terms)
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"training":      "train",
		"learning":      "learn",
		"network":       "network",
		"networks":      "network",
		"computational": "computate",
		"studies":       "study",
		"classifiers":   "classifier",
		"optimization":  "optimizat",
		"deep":          "deep",
		"class":         "class",
	}
	for word, want := range cases {
		assert.Equal(t, want, stem(word), "stem(%q)", word)
	}
}

func TestNormalizeQueryMatchesDocumentRules(t *testing.T) {
	doc := Normalize("Distributed Training of Networks", "", "")
	query := NormalizeQuery("distributed training networks")
	require.Equal(t, len(doc), len(query))
	for i := range query {
		assert.Equal(t, doc[i].Term, query[i])
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "netw", NormalizePrefix("  NetW "))
	assert.Equal(t, "training", NormalizePrefix("training"), "prefixes are never stemmed")
	assert.Equal(t, "", NormalizePrefix("!!"))
	assert.Equal(t, "", NormalizePrefix(""))
}
