package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:     10,
		MaxResults:       100,
		TitleWeight:      3.0,
		AuthorsWeight:    2.0,
		AbstractWeight:   1.0,
		CoverageExponent: 2.0,
		ProximityWindow:  50,
		ProximityBoost:   0.5,
		ProximityDecay:   10.0,
		MaxProximityDocs: 50,
	}
}

func TestIDF(t *testing.T) {
	sc := &scorer{cfg: testSearchConfig(), totalDocs: 100}
	assert.InDelta(t, math.Log(100.0/2.0), sc.idf(1), 1e-9)
	assert.Greater(t, sc.idf(1), sc.idf(10), "rarer terms weigh more")

	empty := &scorer{cfg: testSearchConfig(), totalDocs: 0}
	assert.Zero(t, empty.idf(0))
}

func TestWeightedTF(t *testing.T) {
	sc := &scorer{cfg: testSearchConfig(), totalDocs: 10}
	p := postings.Posting{
		Frequency: 4,
		FieldFreq: [3]uint32{1, 1, 2},
	}
	// 3*1 + 2*1 + 1*2
	assert.InDelta(t, 7.0, sc.weightedTF(p), 1e-9)
}

func TestCoverage(t *testing.T) {
	sc := &scorer{cfg: testSearchConfig(), totalDocs: 10}
	assert.InDelta(t, 4.0, sc.coverage(2, 2), 1e-9, "full coverage doubles twice")
	assert.InDelta(t, 2.0, sc.coverage(1, 2), 1e-9)
	assert.InDelta(t, 1.0, sc.coverage(0, 0), 1e-9)
	assert.Greater(t, sc.coverage(3, 3), sc.coverage(1, 3))
}

func TestProximityBonus(t *testing.T) {
	sc := &scorer{cfg: testSearchConfig(), totalDocs: 10}

	assert.InDelta(t, 1.5, sc.proximityBonus(0), 1e-9, "adjacent terms get the full boost")
	assert.Greater(t, sc.proximityBonus(1), sc.proximityBonus(20))
	assert.Greater(t, sc.proximityBonus(1), 1.0)

	assert.Equal(t, 1.0, sc.proximityBonus(51), "outside the window, no boost")
	assert.Equal(t, 1.0, sc.proximityBonus(-1), "missing term, no boost")
}

func TestMinSpan(t *testing.T) {
	// Term 0 at 2 and 9; term 1 at 7. Best window is [7,9].
	occs := []occurrence{{2, 0}, {7, 1}, {9, 0}}
	assert.Equal(t, 2, minSpan(occs, 2))

	// Adjacent occurrences.
	occs = []occurrence{{4, 0}, {5, 1}}
	assert.Equal(t, 1, minSpan(occs, 2))

	// Term 1 never occurs.
	occs = []occurrence{{1, 0}, {3, 0}}
	assert.Equal(t, -1, minSpan(occs, 2))

	assert.Equal(t, -1, minSpan(nil, 2))
	assert.Equal(t, -1, minSpan([]occurrence{{0, 0}}, 0))
}

func TestMinSpanThreeTerms(t *testing.T) {
	occs := []occurrence{
		{0, 0}, {1, 1}, {2, 2}, // tight window [0,2]
		{50, 0}, {90, 1},
	}
	assert.Equal(t, 2, minSpan(occs, 3))
}

func TestTopK(t *testing.T) {
	scored := []scoredDoc{
		{Doc: 4, Score: 1.0},
		{Doc: 2, Score: 3.0},
		{Doc: 9, Score: 2.0},
		{Doc: 1, Score: 0.5},
	}

	top := topK(scored, 2)
	assert.Equal(t, []scoredDoc{{Doc: 2, Score: 3.0}, {Doc: 9, Score: 2.0}}, top)

	all := topK(scored, 10)
	assert.Len(t, all, 4)
	assert.Equal(t, postings.DocID(2), all[0].Doc)
	assert.Equal(t, postings.DocID(1), all[3].Doc)
}

func TestTopKTiesAscendingDocID(t *testing.T) {
	scored := []scoredDoc{
		{Doc: 7, Score: 1.0},
		{Doc: 3, Score: 1.0},
		{Doc: 5, Score: 1.0},
	}
	top := topK(scored, 2)
	assert.Equal(t, postings.DocID(3), top[0].Doc)
	assert.Equal(t, postings.DocID(5), top[1].Doc)
}

func TestTopKEdgeCases(t *testing.T) {
	assert.Nil(t, topK(nil, 5))
	assert.Nil(t, topK([]scoredDoc{}, 5))
	assert.Nil(t, topK([]scoredDoc{{Doc: 1, Score: 1}}, 0))
}
