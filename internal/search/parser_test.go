package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "any", "ANY", "or"} {
		m, err := ParseMode(s)
		require.NoError(t, err, "mode %q", s)
		assert.Equal(t, ModeAny, m)
	}
	for _, s := range []string{"all", "All", "and"} {
		m, err := ParseMode(s)
		require.NoError(t, err, "mode %q", s)
		assert.Equal(t, ModeAll, m)
	}
	_, err := ParseMode("fuzzy")
	assert.Error(t, err)
}

func TestParseNormalizesTerms(t *testing.T) {
	plan := Parse("Neural Networks, Training!", ModeAny)
	assert.Equal(t, []string{"neural", "network", "train"}, plan.Terms)
	assert.Empty(t, plan.Exclude)
	assert.Equal(t, ModeAny, plan.Mode)
	assert.Equal(t, "Neural Networks, Training!", plan.RawQuery)
}

func TestParseDeduplicatesTerms(t *testing.T) {
	plan := Parse("network networks network", ModeAny)
	assert.Equal(t, []string{"network"}, plan.Terms)
}

func TestParseInlineOperatorsOverrideMode(t *testing.T) {
	plan := Parse("neural AND network", ModeAny)
	assert.Equal(t, ModeAll, plan.Mode)
	assert.Equal(t, []string{"neural", "network"}, plan.Terms)

	plan = Parse("neural OR network", ModeAll)
	assert.Equal(t, ModeAny, plan.Mode)
}

func TestParseNotExclusion(t *testing.T) {
	plan := Parse("network NOT deep", ModeAny)
	assert.Equal(t, []string{"network"}, plan.Terms)
	assert.Equal(t, []string{"deep"}, plan.Exclude)
}

func TestParseNotBeforeStopWord(t *testing.T) {
	// The excluded word normalizes away; the marker must not leak onto
	// the following term.
	plan := Parse("network NOT the deep", ModeAny)
	assert.Equal(t, []string{"network", "deep"}, plan.Terms)
	assert.Empty(t, plan.Exclude)
}

func TestParseEmptyQueries(t *testing.T) {
	assert.Empty(t, Parse("", ModeAny).Terms)
	assert.Empty(t, Parse("   ", ModeAny).Terms)
	assert.Empty(t, Parse("the of and", ModeAny).Terms, "stop words only")
}
