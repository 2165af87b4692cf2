// Package docstore keeps the document metadata (external id, title,
// authors, abstract) keyed by DocID, backed by a bolt file. The index core
// never reads raw text from here; it exists so search results can carry
// titles and so external ids map to DocIDs.
package docstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
)

var bucketDocs = []byte("docs")

// Document is one research paper's metadata.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Abstract string `json:"abstract"`
}

// Store maps DocIDs to document metadata and external ids to DocIDs. Not
// internally synchronised; the owning index serialises writers.
type Store struct {
	byDoc map[postings.DocID]Document
	byExt map[string]postings.DocID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byDoc: make(map[postings.DocID]Document),
		byExt: make(map[string]postings.DocID),
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.byDoc)
}

// Get returns the metadata for a DocID.
func (s *Store) Get(doc postings.DocID) (Document, bool) {
	d, ok := s.byDoc[doc]
	return d, ok
}

// LookupExternal maps an external document id to its DocID.
func (s *Store) LookupExternal(extID string) (postings.DocID, bool) {
	id, ok := s.byExt[extID]
	return id, ok
}

// Put records a document's metadata. An external id that is already bound
// to a different DocID is rejected.
func (s *Store) Put(doc postings.DocID, d Document) error {
	if d.ID != "" {
		if existing, ok := s.byExt[d.ID]; ok && existing != doc {
			return fmt.Errorf("external id %q already bound to doc %d", d.ID, existing)
		}
		s.byExt[d.ID] = doc
	}
	s.byDoc[doc] = d
	return nil
}

// Remove drops a document; the compensating action for a failed add.
func (s *Store) Remove(doc postings.DocID) {
	if d, ok := s.byDoc[doc]; ok {
		delete(s.byExt, d.ID)
		delete(s.byDoc, doc)
	}
}

// Save persists the full store.
func (s *Store) Save(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocs); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketDocs)
		if err != nil {
			return err
		}
		for doc, d := range s.byDoc {
			if err := putDoc(b, doc, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveDoc persists one document; the incremental-commit path.
func (s *Store) SaveDoc(db *bolt.DB, doc postings.DocID) error {
	d, ok := s.byDoc[doc]
	if !ok {
		return fmt.Errorf("doc %d not in store", doc)
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketDocs)
		if err != nil {
			return err
		}
		return putDoc(b, doc, d)
	})
}

// DeleteDoc removes one persisted document; the compensating write for a
// failed transaction.
func (s *Store) DeleteDoc(db *bolt.DB, doc postings.DocID) error {
	return db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketDocs); b != nil {
			return b.Delete(docKey(doc))
		}
		return nil
	})
}

// Load restores the store from its bolt file.
func (s *Store) Load(db *bolt.DB) error {
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 4 {
				return fmt.Errorf("malformed docstore key %x", k)
			}
			doc := postings.DocID(binary.LittleEndian.Uint32(k))
			var d Document
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("doc %d: %w", doc, err)
			}
			s.byDoc[doc] = d
			if d.ID != "" {
				s.byExt[d.ID] = doc
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("loading docstore: %w", err)
	}
	return nil
}

func putDoc(b *bolt.Bucket, doc postings.DocID, d Document) error {
	v, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.Put(docKey(doc), v)
}

func docKey(doc postings.DocID) []byte {
	k := make([]byte, 4)
	binary.LittleEndian.PutUint32(k, uint32(doc))
	return k
}
