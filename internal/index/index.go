// Package index ties the four index structures together under one
// lifecycle (Build, Open, Close) and implements the incremental document
// updater. One Index instance owns all mutable state; there are no
// package-level singletons.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/boltdb/bolt"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index/barrel"
	"github.com/maryam-tariqq/DSA-Project/internal/index/forward"
	"github.com/maryam-tariqq/DSA-Project/internal/index/lexicon"
	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/internal/index/trie"
	"github.com/maryam-tariqq/DSA-Project/internal/textproc"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
)

const (
	lexiconFile = "lexicon.db"
	forwardFile = "forward.db"
	docsFile    = "docs.db"
	barrelsDir  = "barrels"
)

// Index is the process-wide search index. Reads (View) take a shared
// lock; document additions take the exclusive lock for the whole
// transaction, so readers observe either the pre-transaction or the fully
// committed state, never an intermediate one.
type Index struct {
	mu     sync.RWMutex
	cfg    config.IndexConfig
	logger *slog.Logger
	m      *metrics.Metrics

	lex     *lexicon.Lexicon
	trie    *trie.Trie
	fwd     *forward.Index
	barrels *barrel.Store
	docs    *docstore.Store

	lexDB *bolt.DB
	fwdDB *bolt.DB
	docDB *bolt.DB

	nextDoc postings.DocID
	version uint64
	closed  bool
}

// Build constructs a fresh index over the corpus, persists every
// structure, and returns the open index. DocIDs are assigned in corpus
// order starting at 0.
func Build(cfg config.IndexConfig, m *metrics.Metrics, corpus []docstore.Document) (*Index, error) {
	ix, err := newIndex(cfg, m)
	if err != nil {
		return nil, err
	}

	for _, d := range corpus {
		tokens := textproc.Normalize(d.Title, d.Authors, d.Abstract)
		if len(tokens) == 0 {
			ix.logger.Warn("skipping document with no indexable terms", "external_id", d.ID)
			continue
		}
		doc := ix.nextDoc
		if err := ix.fwd.Add(doc, tokens, ix.lex); err != nil {
			return nil, fmt.Errorf("indexing document %q: %w", d.ID, err)
		}
		if err := ix.docs.Put(doc, d); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDuplicateDocument, err)
		}
		ix.nextDoc++
	}

	// Invert: walking documents in ascending DocID order yields posting
	// lists already sorted by DocID.
	all := make(map[postings.TermID]postings.PostingList)
	for doc := postings.DocID(0); doc < ix.nextDoc; doc++ {
		for id, p := range ix.fwd.TermPostings(doc) {
			all[id] = append(all[id], p)
		}
	}

	store, err := barrel.Create(filepath.Join(cfg.DataDir, barrelsDir), all, ix.lex.NextTermID(), cfg.BarrelMaxBytes, barrel.Options{
		Metrics:           m,
		ReadRetryAttempts: cfg.ReadRetryAttempts,
		ReadTimeout:       cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	ix.barrels = store
	if err := store.VerifyPartition(ix.lex.NextTermID()); err != nil {
		return nil, err
	}

	for id, pl := range all {
		if term, ok := ix.lex.TermOf(id); ok {
			ix.trie.SetFrequency(term, uint32(len(pl)))
		}
	}

	if err := ix.lex.Save(ix.lexDB); err != nil {
		return nil, fmt.Errorf("persisting lexicon: %w", err)
	}
	if err := ix.fwd.Save(ix.fwdDB, ix.nextDoc); err != nil {
		return nil, fmt.Errorf("persisting forward index: %w", err)
	}
	if err := ix.docs.Save(ix.docDB); err != nil {
		return nil, fmt.Errorf("persisting docstore: %w", err)
	}

	ix.publishGauges()
	ix.logger.Info("index built",
		"documents", ix.fwd.Len(),
		"terms", ix.lex.Len(),
		"barrels", store.NumBarrels(),
	)
	return ix, nil
}

// Open loads a previously built index from disk, rebuilding the trie from
// the lexicon and verifying the partition invariant before serving.
func Open(cfg config.IndexConfig, m *metrics.Metrics) (*Index, error) {
	ix, err := newIndex(cfg, m)
	if err != nil {
		return nil, err
	}
	if err := ix.lex.Load(ix.lexDB); err != nil {
		return nil, err
	}
	nextDoc, err := ix.fwd.Load(ix.fwdDB)
	if err != nil {
		return nil, err
	}
	ix.nextDoc = nextDoc
	if err := ix.docs.Load(ix.docDB); err != nil {
		return nil, err
	}

	store, err := barrel.Open(filepath.Join(cfg.DataDir, barrelsDir), barrel.Options{
		Metrics:           m,
		ReadRetryAttempts: cfg.ReadRetryAttempts,
		ReadTimeout:       cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	ix.barrels = store
	if err := store.VerifyPartition(ix.lex.NextTermID()); err != nil {
		return nil, err
	}

	ix.seedTrieFrequencies()
	ix.publishGauges()
	ix.logger.Info("index opened",
		"documents", ix.fwd.Len(),
		"terms", ix.lex.Len(),
		"barrels", store.NumBarrels(),
	)
	return ix, nil
}

func newIndex(cfg config.IndexConfig, m *metrics.Metrics) (*Index, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	t := trie.New()
	ix := &Index{
		cfg:    cfg,
		logger: logger.WithComponent("index"),
		m:      m,
		lex:    lexicon.New(t),
		trie:   t,
		fwd:    forward.New(),
		docs:   docstore.New(),
	}
	var err error
	if ix.lexDB, err = bolt.Open(filepath.Join(cfg.DataDir, lexiconFile), 0644, nil); err != nil {
		return nil, fmt.Errorf("opening lexicon db: %w", err)
	}
	if ix.fwdDB, err = bolt.Open(filepath.Join(cfg.DataDir, forwardFile), 0644, nil); err != nil {
		ix.lexDB.Close()
		return nil, fmt.Errorf("opening forward db: %w", err)
	}
	if ix.docDB, err = bolt.Open(filepath.Join(cfg.DataDir, docsFile), 0644, nil); err != nil {
		ix.lexDB.Close()
		ix.fwdDB.Close()
		return nil, fmt.Errorf("opening docstore db: %w", err)
	}
	return ix, nil
}

// seedTrieFrequencies derives per-term document frequencies from the
// forward index, so ranked autocomplete works after Open without touching
// any barrel.
func (ix *Index) seedTrieFrequencies() {
	df := make(map[postings.TermID]uint32)
	ix.fwd.Docs(func(_ postings.DocID, entries []forward.Entry) error {
		seen := make(map[postings.TermID]struct{}, len(entries))
		for _, e := range entries {
			if _, dup := seen[e.Term]; !dup {
				seen[e.Term] = struct{}{}
				df[e.Term]++
			}
		}
		return nil
	})
	for id, n := range df {
		if term, ok := ix.lex.TermOf(id); ok {
			ix.trie.SetFrequency(term, n)
		}
	}
}

// Close releases the underlying files. In-flight readers finish first.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	var firstErr error
	for _, db := range []*bolt.DB{ix.lexDB, ix.fwdDB, ix.docDB} {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AddDocument indexes one new document, extending the lexicon, trie,
// forward index, and barrels as a single all-or-nothing transaction. On
// any failure every structure, in memory and on disk, is restored to its
// pre-call state.
func (ix *Index) AddDocument(ctx context.Context, d docstore.Document) (postings.DocID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return 0, apperrors.ErrClosed
	}
	if d.ID != "" {
		if existing, dup := ix.docs.LookupExternal(d.ID); dup {
			ix.addFailed("duplicate")
			return 0, fmt.Errorf("external id %q is doc %d: %w", d.ID, existing, apperrors.ErrDuplicateDocument)
		}
	}
	tokens := textproc.Normalize(d.Title, d.Authors, d.Abstract)
	if len(tokens) == 0 {
		ix.addFailed("invalid")
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, 400, "document has no indexable terms")
	}

	lexMark := ix.lex.NextTermID()
	doc := ix.nextDoc

	// Stage in-memory state. Each step's compensating action unwinds in
	// reverse order on failure.
	if err := ix.fwd.Add(doc, tokens, ix.lex); err != nil {
		ix.lex.Rollback(lexMark)
		ix.addFailed("invalid")
		return 0, err
	}
	updates := ix.fwd.TermPostings(doc)

	restoreBarrels, err := ix.barrels.MergeBatch(ctx, updates)
	if err != nil {
		ix.fwd.Remove(doc)
		ix.lex.Rollback(lexMark)
		ix.addFailed("io")
		return 0, err
	}

	rollback := func(undo ...func() error) {
		for _, fn := range undo {
			if err := fn(); err != nil {
				ix.logger.Error("rollback step failed", "doc", doc, "error", err)
			}
		}
		ix.fwd.Remove(doc)
		ix.lex.Rollback(lexMark)
	}

	if err := ix.lex.SaveFrom(ix.lexDB, lexMark); err != nil {
		rollback(restoreBarrels)
		ix.addFailed("io")
		return 0, fmt.Errorf("persisting lexicon: %w", err)
	}
	if err := ix.fwd.SaveEntry(ix.fwdDB, doc, doc+1); err != nil {
		rollback(restoreBarrels, func() error { return ix.lex.DeleteFrom(ix.lexDB, lexMark) })
		ix.addFailed("io")
		return 0, fmt.Errorf("persisting forward entry: %w", err)
	}
	if err := ix.docs.Put(doc, d); err != nil {
		rollback(restoreBarrels,
			func() error { return ix.lex.DeleteFrom(ix.lexDB, lexMark) },
			func() error { return ix.fwd.DeleteEntry(ix.fwdDB, doc, doc) })
		ix.addFailed("duplicate")
		return 0, fmt.Errorf("%w: %v", apperrors.ErrDuplicateDocument, err)
	}
	if err := ix.docs.SaveDoc(ix.docDB, doc); err != nil {
		ix.docs.Remove(doc)
		rollback(restoreBarrels,
			func() error { return ix.lex.DeleteFrom(ix.lexDB, lexMark) },
			func() error { return ix.fwd.DeleteEntry(ix.fwdDB, doc, doc) })
		ix.addFailed("io")
		return 0, fmt.Errorf("persisting document metadata: %w", err)
	}

	// Commit: the document becomes visible to readers only once the lock
	// is released with every structure updated.
	ix.nextDoc = doc + 1
	for id := range updates {
		if term, ok := ix.lex.TermOf(id); ok {
			pl, _ := ix.barrels.PostingsFor(ctx, id)
			ix.trie.SetFrequency(term, uint32(len(pl)))
		}
	}
	ix.version++
	ix.publishGauges()
	if ix.m != nil {
		ix.m.DocsIndexedTotal.Inc()
	}
	ix.logger.Info("document added",
		"doc", doc,
		"external_id", d.ID,
		"tokens", ix.fwd.DocLength(doc),
		"new_terms", uint32(ix.lex.NextTermID()-lexMark),
	)
	return doc, nil
}

func (ix *Index) addFailed(reason string) {
	if ix.m != nil {
		ix.m.IndexAddFailures.WithLabelValues(reason).Inc()
	}
}

func (ix *Index) publishGauges() {
	if ix.m == nil {
		return
	}
	ix.m.TermCount.Set(float64(ix.lex.Len()))
	ix.m.DocCount.Set(float64(ix.fwd.Len()))
}

// Stats is a point-in-time summary for health checks and logging.
type Stats struct {
	Documents   int
	Terms       int
	TotalTokens int64
	Barrels     int
	Quarantined int
	Version     uint64
}

// Stats returns current index statistics.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		Documents:   ix.fwd.Len(),
		Terms:       ix.lex.Len(),
		TotalTokens: ix.fwd.TotalTokens(),
		Barrels:     ix.barrels.NumBarrels(),
		Quarantined: ix.barrels.Quarantined(),
		Version:     ix.version,
	}
}

// View runs fn with a consistent read view of the index. The shared lock
// is held for the duration, so a query never observes a half-committed
// document addition.
func (ix *Index) View(fn func(v *View) error) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return apperrors.ErrClosed
	}
	return fn(&View{ix: ix})
}

// View is a read-only handle valid only inside Index.View.
type View struct {
	ix *Index
}

// Lookup resolves a term without allocating.
func (v *View) Lookup(term string) (postings.TermID, bool) {
	return v.ix.lex.Lookup(term)
}

// PostingsFor fetches the term's posting list from the barrel store.
func (v *View) PostingsFor(ctx context.Context, id postings.TermID) (postings.PostingList, error) {
	return v.ix.barrels.PostingsFor(ctx, id)
}

// EntriesFor returns a document's forward-index entries.
func (v *View) EntriesFor(doc postings.DocID) []forward.Entry {
	return v.ix.fwd.EntriesFor(doc)
}

// Meta returns a document's stored metadata.
func (v *View) Meta(doc postings.DocID) (docstore.Document, bool) {
	return v.ix.docs.Get(doc)
}

// DocCount returns the number of indexed documents.
func (v *View) DocCount() int {
	return v.ix.fwd.Len()
}

// Autocomplete returns completions for the prefix, lexicographic by
// default or frequency-ranked when the index is configured for it.
func (v *View) Autocomplete(prefix string, limit int) []trie.Completion {
	if v.ix.cfg.RankAutocomplete {
		return v.ix.trie.PrefixSearchRanked(prefix, limit)
	}
	return v.ix.trie.PrefixSearch(prefix, limit)
}

// Version increases by one for every committed document addition. Cache
// keys embed it so stale entries die with the version.
func (v *View) Version() uint64 {
	return v.ix.version
}
