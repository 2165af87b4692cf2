// Package forward implements the forward index: per-document ordered
// (TermID, position, field) entries. Entries are append-only per document
// and never mutated after creation.
package forward

import (
	"encoding/binary"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/internal/textproc"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
)

var (
	bucketDocs = []byte("docs")
	bucketMeta = []byte("meta")
	keyNextDoc = []byte("nextDocID")
)

// Entry is one token occurrence within a document.
type Entry struct {
	Term     postings.TermID
	Position uint32
	Field    textproc.Field
}

const entrySize = 4 + 4 + 1

// Index is the forward index. Not internally synchronised; the owning
// index serialises writers.
type Index struct {
	entries     map[postings.DocID][]Entry
	totalTokens int64
}

// New creates an empty forward index.
func New() *Index {
	return &Index{entries: make(map[postings.DocID][]Entry)}
}

// Resolver allocates or looks up TermIDs; satisfied by *lexicon.Lexicon.
type Resolver interface {
	Resolve(term string) (postings.TermID, error)
}

// Add resolves every token through the lexicon and appends the document's
// entry list in position order. A DocID that already has an entry is
// rejected with ErrDuplicateDocument: documents are immutable once indexed.
func (ix *Index) Add(doc postings.DocID, tokens []textproc.Token, lex Resolver) error {
	if _, exists := ix.entries[doc]; exists {
		return fmt.Errorf("doc %d: %w", doc, apperrors.ErrDuplicateDocument)
	}
	entries := make([]Entry, 0, len(tokens))
	lastPos := -1
	for _, tok := range tokens {
		if tok.Position <= lastPos {
			return apperrors.Newf(apperrors.ErrInvalidInput, 400,
				"token positions not strictly increasing at %d", tok.Position)
		}
		lastPos = tok.Position
		id, err := lex.Resolve(tok.Term)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Term:     id,
			Position: uint32(tok.Position),
			Field:    tok.Field,
		})
	}
	ix.entries[doc] = entries
	ix.totalTokens += int64(len(entries))
	return nil
}

// Remove drops a document's entry; the compensating action for a failed
// add transaction.
func (ix *Index) Remove(doc postings.DocID) {
	if e, ok := ix.entries[doc]; ok {
		ix.totalTokens -= int64(len(e))
		delete(ix.entries, doc)
	}
}

// EntriesFor returns the document's ordered entries, used by the query
// engine for phrase and proximity checks. Nil for unknown documents.
func (ix *Index) EntriesFor(doc postings.DocID) []Entry {
	return ix.entries[doc]
}

// Contains reports whether the document is indexed.
func (ix *Index) Contains(doc postings.DocID) bool {
	_, ok := ix.entries[doc]
	return ok
}

// DocLength returns the document's token count.
func (ix *Index) DocLength(doc postings.DocID) int {
	return len(ix.entries[doc])
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// TotalTokens returns the corpus token count, for average-length stats.
func (ix *Index) TotalTokens() int64 {
	return ix.totalTokens
}

// Docs calls fn for every indexed document. Iteration order is undefined.
func (ix *Index) Docs(fn func(doc postings.DocID, entries []Entry) error) error {
	for doc, entries := range ix.entries {
		if err := fn(doc, entries); err != nil {
			return err
		}
	}
	return nil
}

// TermPostings groups a document's entries by TermID, producing the
// posting each term gains from this document. Positions stay strictly
// ascending within each group because entries are position-ordered.
func (ix *Index) TermPostings(doc postings.DocID) map[postings.TermID]postings.Posting {
	return GroupEntries(doc, ix.entries[doc])
}

// GroupEntries builds per-term postings from an ordered entry list.
func GroupEntries(doc postings.DocID, entries []Entry) map[postings.TermID]postings.Posting {
	out := make(map[postings.TermID]postings.Posting)
	for _, e := range entries {
		p := out[e.Term]
		p.Doc = doc
		p.Frequency++
		p.Positions = append(p.Positions, e.Position)
		p.FieldFreq[e.Field]++
		out[e.Term] = p
	}
	return out
}

// Save persists every document entry and the next DocID watermark.
func (ix *Index) Save(db *bolt.DB, nextDoc postings.DocID) error {
	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocs); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		docs, err := tx.CreateBucket(bucketDocs)
		if err != nil {
			return err
		}
		for doc, entries := range ix.entries {
			if err := docs.Put(docKey(doc), encodeEntries(entries)); err != nil {
				return err
			}
		}
		return putNextDoc(tx, nextDoc)
	})
}

// SaveEntry persists one document's entries and advances the watermark; the
// incremental-commit path.
func (ix *Index) SaveEntry(db *bolt.DB, doc postings.DocID, nextDoc postings.DocID) error {
	entries, ok := ix.entries[doc]
	if !ok {
		return fmt.Errorf("doc %d has no forward entry", doc)
	}
	return db.Update(func(tx *bolt.Tx) error {
		docs, err := tx.CreateBucketIfNotExists(bucketDocs)
		if err != nil {
			return err
		}
		if err := docs.Put(docKey(doc), encodeEntries(entries)); err != nil {
			return err
		}
		return putNextDoc(tx, nextDoc)
	})
}

// DeleteEntry removes one persisted document entry and resets the
// watermark; the compensating write for a failed transaction.
func (ix *Index) DeleteEntry(db *bolt.DB, doc postings.DocID, nextDoc postings.DocID) error {
	return db.Update(func(tx *bolt.Tx) error {
		if docs := tx.Bucket(bucketDocs); docs != nil {
			if err := docs.Delete(docKey(doc)); err != nil {
				return err
			}
		}
		return putNextDoc(tx, nextDoc)
	})
}

// Load restores the forward index and returns the next DocID watermark.
func (ix *Index) Load(db *bolt.DB) (postings.DocID, error) {
	var nextDoc postings.DocID
	err := db.View(func(tx *bolt.Tx) error {
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if v := meta.Get(keyNextDoc); len(v) == 4 {
				nextDoc = postings.DocID(binary.LittleEndian.Uint32(v))
			}
		}
		docs := tx.Bucket(bucketDocs)
		if docs == nil {
			return nil
		}
		return docs.ForEach(func(k, v []byte) error {
			if len(k) != 4 {
				return fmt.Errorf("malformed forward index key %x", k)
			}
			doc := postings.DocID(binary.LittleEndian.Uint32(k))
			entries, err := decodeEntries(v)
			if err != nil {
				return fmt.Errorf("doc %d: %w", doc, err)
			}
			ix.entries[doc] = entries
			ix.totalTokens += int64(len(entries))
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("loading forward index: %w", err)
	}
	return nextDoc, nil
}

func putNextDoc(tx *bolt.Tx, nextDoc postings.DocID) error {
	meta, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], uint32(nextDoc))
	return meta.Put(keyNextDoc, v[:])
}

func docKey(doc postings.DocID) []byte {
	k := make([]byte, 4)
	binary.LittleEndian.PutUint32(k, uint32(doc))
	return k
}

func encodeEntries(entries []Entry) []byte {
	buf := make([]byte, 4+len(entries)*entrySize)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[off:], uint32(e.Term))
		binary.LittleEndian.PutUint32(buf[off+4:], e.Position)
		buf[off+8] = byte(e.Field)
		off += entrySize
	}
	return buf
}

func decodeEntries(buf []byte) ([]Entry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("truncated entry list")
	}
	n := int(binary.LittleEndian.Uint32(buf))
	if len(buf) != 4+n*entrySize {
		return nil, fmt.Errorf("entry list length mismatch: header %d, payload %d bytes", n, len(buf)-4)
	}
	entries := make([]Entry, n)
	off := 4
	for i := range entries {
		entries[i] = Entry{
			Term:     postings.TermID(binary.LittleEndian.Uint32(buf[off:])),
			Position: binary.LittleEndian.Uint32(buf[off+4:]),
			Field:    textproc.Field(buf[off+8]),
		}
		off += entrySize
	}
	return entries, nil
}
