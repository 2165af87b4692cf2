// Package trie implements the prefix tree over lexicon terms used for
// autocomplete. Nodes reference terms by TermID only; the trie never owns
// lexicon state.
package trie

import (
	"sort"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
)

// Completion is one autocomplete candidate.
type Completion struct {
	Term      string
	ID        postings.TermID
	Frequency uint32
}

type node struct {
	children map[byte]*node
	terminal bool
	id       postings.TermID
	// freq is the term's document frequency, used only by ranked
	// autocomplete.
	freq uint32
}

// Trie is a byte-keyed prefix tree. It is not internally synchronised; the
// owning index serialises writers and shields readers.
type Trie struct {
	root *node
	size int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: &node{}}
}

// Len returns the number of terminal nodes.
func (t *Trie) Len() int {
	return t.size
}

// Insert adds term with its TermID, marking the final node terminal.
// Inserting a term that is already present is a no-op, so the operation is
// idempotent. An empty term is rejected.
func (t *Trie) Insert(term string, id postings.TermID) error {
	if term == "" {
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "empty term")
	}
	n := t.root
	for i := 0; i < len(term); i++ {
		c := term[i]
		if n.children == nil {
			n.children = make(map[byte]*node)
		}
		child, ok := n.children[c]
		if !ok {
			child = &node{}
			n.children[c] = child
		}
		n = child
	}
	if !n.terminal {
		n.terminal = true
		n.id = id
		t.size++
	}
	return nil
}

// Remove unmarks term's terminal node. It exists only to roll back a failed
// lexicon allocation; dangling interior nodes are left in place.
func (t *Trie) Remove(term string) {
	n := t.root
	for i := 0; i < len(term); i++ {
		child, ok := n.children[term[i]]
		if !ok {
			return
		}
		n = child
	}
	if n.terminal {
		n.terminal = false
		t.size--
	}
}

// SetFrequency records the document frequency for a terminal term, feeding
// ranked autocomplete. Unknown terms are ignored.
func (t *Trie) SetFrequency(term string, freq uint32) {
	if n := t.walk(term); n != nil && n.terminal {
		n.freq = freq
	}
}

// Contains reports whether term is terminal in the trie.
func (t *Trie) Contains(term string) bool {
	n := t.walk(term)
	return n != nil && n.terminal
}

// PrefixSearch returns up to limit completions of prefix in lexicographic
// order. A prefix with no matching path yields an empty slice, not an
// error.
func (t *Trie) PrefixSearch(prefix string, limit int) []Completion {
	if limit <= 0 {
		return nil
	}
	n := t.walk(prefix)
	if n == nil {
		return nil
	}
	results := make([]Completion, 0, limit)
	collect(n, []byte(prefix), limit, &results)
	return results
}

// PrefixSearchRanked returns up to limit completions ordered by descending
// document frequency, breaking ties lexicographically (the documented
// secondary sort key).
func (t *Trie) PrefixSearchRanked(prefix string, limit int) []Completion {
	if limit <= 0 {
		return nil
	}
	n := t.walk(prefix)
	if n == nil {
		return nil
	}
	// Collect every terminal under the prefix, then take the top slice.
	// Lexicographic collection makes the tiebreak fall out of a stable
	// sort.
	var all []Completion
	collect(n, []byte(prefix), -1, &all)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Frequency > all[j].Frequency
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (t *Trie) walk(s string) *node {
	n := t.root
	for i := 0; i < len(s); i++ {
		child, ok := n.children[s[i]]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// collect appends terminal descendants of n in lexicographic order. A
// negative limit collects everything.
func collect(n *node, path []byte, limit int, out *[]Completion) {
	if limit >= 0 && len(*out) >= limit {
		return
	}
	if n.terminal {
		*out = append(*out, Completion{
			Term:      string(path),
			ID:        n.id,
			Frequency: n.freq,
		})
	}
	if len(n.children) == 0 {
		return
	}
	keys := make([]byte, 0, len(n.children))
	for c := range n.children {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, c := range keys {
		collect(n.children[c], append(path, c), limit, out)
	}
}
