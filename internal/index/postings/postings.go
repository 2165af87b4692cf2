// Package postings defines the identifier and posting-list types shared by
// every index structure. Cross-structure references are plain integer ids
// (arena style), never pointers.
package postings

import "sort"

// TermID is the stable integer identifier a term receives from the lexicon.
// Ids are dense, assigned monotonically from 0, and never reused.
type TermID uint32

// DocID is the stable integer identifier a document receives at ingestion.
// Ids are dense, assigned monotonically from 0, and never reused.
type DocID uint32

// Posting records one term's occurrences in one document. Frequency always
// equals len(Positions); Positions are strictly ascending global token
// offsets; FieldFreq splits Frequency across title/authors/abstract.
type Posting struct {
	Doc       DocID     `json:"d"`
	Frequency uint32    `json:"f"`
	Positions []uint32  `json:"p"`
	FieldFreq [3]uint32 `json:"ff"`
}

// PostingList holds all postings for one term, ascending by DocID with no
// duplicates.
type PostingList []Posting

// Find returns the index of the posting for doc, or (insertion point,
// false) when absent.
func (pl PostingList) Find(doc DocID) (int, bool) {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].Doc >= doc })
	if i < len(pl) && pl[i].Doc == doc {
		return i, true
	}
	return i, false
}

// Upsert returns a copy of pl with p inserted (or replacing an existing
// posting for the same document), preserving DocID order. The receiver is
// not modified, so callers can stage a merge and keep the pre-image.
func (pl PostingList) Upsert(p Posting) PostingList {
	i, found := pl.Find(p.Doc)
	out := make(PostingList, 0, len(pl)+1)
	out = append(out, pl[:i]...)
	out = append(out, p)
	if found {
		out = append(out, pl[i+1:]...)
	} else {
		out = append(out, pl[i:]...)
	}
	return out
}

// Intersect returns the DocIDs present in every list, using an ascending
// k-way sorted merge. Cost is linear in the total list lengths.
func Intersect(lists []PostingList) []DocID {
	if len(lists) == 0 {
		return nil
	}
	// Start from the shortest list to keep the candidate set small.
	shortest := 0
	for i, l := range lists {
		if len(l) < len(lists[shortest]) {
			shortest = i
		}
	}
	candidates := make([]DocID, 0, len(lists[shortest]))
	for _, p := range lists[shortest] {
		candidates = append(candidates, p.Doc)
	}
	for i, l := range lists {
		if i == shortest || len(candidates) == 0 {
			continue
		}
		kept := candidates[:0]
		li := 0
		for _, doc := range candidates {
			for li < len(l) && l[li].Doc < doc {
				li++
			}
			if li < len(l) && l[li].Doc == doc {
				kept = append(kept, doc)
			}
		}
		candidates = kept
	}
	return candidates
}

// Validate checks the posting-list invariants: ascending unique DocIDs,
// frequency/position agreement, and strictly ascending positions.
func (pl PostingList) Validate() bool {
	for i, p := range pl {
		if i > 0 && pl[i-1].Doc >= p.Doc {
			return false
		}
		if int(p.Frequency) != len(p.Positions) {
			return false
		}
		var fieldSum uint32
		for _, f := range p.FieldFreq {
			fieldSum += f
		}
		if fieldSum != p.Frequency {
			return false
		}
		for j := 1; j < len(p.Positions); j++ {
			if p.Positions[j-1] >= p.Positions[j] {
				return false
			}
		}
	}
	return true
}
