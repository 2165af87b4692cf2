// Package lexicon maps normalised terms to stable TermIDs. Ids are dense,
// allocated monotonically from 0, and never reused; once assigned, a
// TermID's term never changes.
package lexicon

import (
	"encoding/binary"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/internal/index/trie"
)

var bucketTerms = []byte("terms")

// Lexicon is the term vocabulary. Every successful allocation also inserts
// the term into the trie; the two structures are updated atomically. Not
// internally synchronised; the owning index serialises writers.
type Lexicon struct {
	ids  map[string]postings.TermID
	byID []string
	trie *trie.Trie
}

// New creates an empty lexicon feeding the given trie.
func New(t *trie.Trie) *Lexicon {
	return &Lexicon{
		ids:  make(map[string]postings.TermID),
		trie: t,
	}
}

// Len returns the number of terms; the next allocated id equals Len.
func (l *Lexicon) Len() int {
	return len(l.byID)
}

// NextTermID returns the id the next new term will receive.
func (l *Lexicon) NextTermID() postings.TermID {
	return postings.TermID(len(l.byID))
}

// Lookup is the read-only probe used at query time. Unknown terms report
// false; they never allocate.
func (l *Lexicon) Lookup(term string) (postings.TermID, bool) {
	id, ok := l.ids[term]
	return id, ok
}

// Resolve returns the existing id for term or allocates the next unused
// one. Allocation inserts the term into the trie as well; if that fails
// the allocation is rolled back and the lexicon is unchanged.
func (l *Lexicon) Resolve(term string) (postings.TermID, error) {
	if id, ok := l.ids[term]; ok {
		return id, nil
	}
	id := postings.TermID(len(l.byID))
	l.ids[term] = id
	l.byID = append(l.byID, term)
	if err := l.trie.Insert(term, id); err != nil {
		delete(l.ids, term)
		l.byID = l.byID[:len(l.byID)-1]
		return 0, fmt.Errorf("inserting %q into trie: %w", term, err)
	}
	return id, nil
}

// TermOf is the reverse lookup.
func (l *Lexicon) TermOf(id postings.TermID) (string, bool) {
	if int(id) >= len(l.byID) {
		return "", false
	}
	return l.byID[id], true
}

// Rollback removes every term with id >= from, undoing a staged allocation
// batch. Only the most recent allocations can be rolled back because ids
// are dense.
func (l *Lexicon) Rollback(from postings.TermID) {
	for id := int(from); id < len(l.byID); id++ {
		term := l.byID[id]
		delete(l.ids, term)
		l.trie.Remove(term)
	}
	if int(from) < len(l.byID) {
		l.byID = l.byID[:from]
	}
}

// Save persists the full term table.
func (l *Lexicon) Save(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketTerms); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketTerms)
		if err != nil {
			return err
		}
		for id, term := range l.byID {
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(id))
			if err := b.Put([]byte(term), v[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveFrom persists only the terms allocated at or after the given id, for
// incremental commits.
func (l *Lexicon) SaveFrom(db *bolt.DB, from postings.TermID) error {
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketTerms)
		if err != nil {
			return err
		}
		for id := int(from); id < len(l.byID); id++ {
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(id))
			if err := b.Put([]byte(l.byID[id]), v[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteFrom removes persisted terms with id >= from; the compensating
// write for a failed transaction.
func (l *Lexicon) DeleteFrom(db *bolt.DB, from postings.TermID) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTerms)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if postings.TermID(binary.LittleEndian.Uint32(v)) >= from {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load rebuilds the lexicon (and its trie) from the persisted term table.
func (l *Lexicon) Load(db *bolt.DB) error {
	type entry struct {
		term string
		id   postings.TermID
	}
	var entries []entry
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTerms)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) != 4 {
				return fmt.Errorf("malformed lexicon value for term %q", k)
			}
			entries = append(entries, entry{
				term: string(k),
				id:   postings.TermID(binary.LittleEndian.Uint32(v)),
			})
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("loading lexicon: %w", err)
	}

	l.byID = make([]string, len(entries))
	for _, e := range entries {
		if int(e.id) >= len(entries) || l.byID[e.id] != "" {
			return fmt.Errorf("lexicon ids are not dense: term %q id %d", e.term, e.id)
		}
		l.ids[e.term] = e.id
		l.byID[e.id] = e.term
	}
	for id, term := range l.byID {
		if err := l.trie.Insert(term, postings.TermID(id)); err != nil {
			return fmt.Errorf("rebuilding trie: %w", err)
		}
	}
	return nil
}
