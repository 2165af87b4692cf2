package search

import (
	"math"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
)

// scorer holds the per-query ranking state: corpus size and the
// configured weighting constants.
type scorer struct {
	cfg       config.SearchConfig
	totalDocs int
}

// idf is log(N / (1 + df)). A term present in every document scores
// slightly negative, which is fine: it still orders more selective
// matches first.
func (s *scorer) idf(docFreq int) float64 {
	if s.totalDocs == 0 {
		return 0
	}
	return math.Log(float64(s.totalDocs) / float64(1+docFreq))
}

// weightedTF combines the per-field term frequencies so title hits
// outrank author hits, which outrank abstract hits.
func (s *scorer) weightedTF(p postings.Posting) float64 {
	return s.cfg.TitleWeight*float64(p.FieldFreq[0]) +
		s.cfg.AuthorsWeight*float64(p.FieldFreq[1]) +
		s.cfg.AbstractWeight*float64(p.FieldFreq[2])
}

// coverage is the multiplier 2^(exp * matched/total) rewarding documents
// that match more of the query's terms.
func (s *scorer) coverage(matched, total int) float64 {
	if total == 0 {
		return 1
	}
	return math.Pow(2, s.cfg.CoverageExponent*float64(matched)/float64(total))
}

// proximityBonus turns a minimal span into a multiplicative boost. Spans
// wider than the window, or documents missing a query term (span < 0),
// keep their base score.
func (s *scorer) proximityBonus(span int) float64 {
	if span < 0 || span > s.cfg.ProximityWindow {
		return 1
	}
	return 1 + s.cfg.ProximityBoost*math.Exp(-float64(span)/s.cfg.ProximityDecay)
}

// occurrence is one query-term hit inside a document, tagged with which
// query term it belongs to. The slice handed to minSpan must be sorted
// by position.
type occurrence struct {
	pos  uint32
	term int
}

// minSpan finds the width of the smallest position window containing at
// least one occurrence of each of numTerms query terms. Returns -1 when
// some term never occurs. Standard two-pointer sliding window.
func minSpan(occs []occurrence, numTerms int) int {
	if numTerms == 0 {
		return -1
	}
	counts := make([]int, numTerms)
	covered := 0
	best := -1
	left := 0
	for right := 0; right < len(occs); right++ {
		if counts[occs[right].term] == 0 {
			covered++
		}
		counts[occs[right].term]++
		for covered == numTerms {
			span := int(occs[right].pos - occs[left].pos)
			if best < 0 || span < best {
				best = span
			}
			counts[occs[left].term]--
			if counts[occs[left].term] == 0 {
				covered--
			}
			left++
		}
	}
	return best
}
