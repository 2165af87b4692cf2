package lexicon

import (
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/internal/index/trie"
)

func openDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "lexicon.db"), 0644, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolveAssignsDenseStableIDs(t *testing.T) {
	lex := New(trie.New())

	a, err := lex.Resolve("neural")
	require.NoError(t, err)
	b, err := lex.Resolve("network")
	require.NoError(t, err)
	assert.Equal(t, postings.TermID(0), a)
	assert.Equal(t, postings.TermID(1), b)

	// Re-resolving must return the same id, never allocate.
	again, err := lex.Resolve("neural")
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, lex.Len())
	assert.Equal(t, postings.TermID(2), lex.NextTermID())
}

func TestLookupNeverAllocates(t *testing.T) {
	lex := New(trie.New())
	_, ok := lex.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, lex.Len())
}

func TestResolveFeedsTrie(t *testing.T) {
	tr := trie.New()
	lex := New(tr)
	_, err := lex.Resolve("network")
	require.NoError(t, err)
	assert.True(t, tr.Contains("network"))
}

func TestTermOf(t *testing.T) {
	lex := New(trie.New())
	id, err := lex.Resolve("graph")
	require.NoError(t, err)

	term, ok := lex.TermOf(id)
	require.True(t, ok)
	assert.Equal(t, "graph", term)

	_, ok = lex.TermOf(99)
	assert.False(t, ok)
}

func TestRollbackRemovesStagedTerms(t *testing.T) {
	tr := trie.New()
	lex := New(tr)
	_, err := lex.Resolve("keep")
	require.NoError(t, err)

	mark := lex.NextTermID()
	_, err = lex.Resolve("staged1")
	require.NoError(t, err)
	_, err = lex.Resolve("staged2")
	require.NoError(t, err)

	lex.Rollback(mark)

	assert.Equal(t, 1, lex.Len())
	_, ok := lex.Lookup("staged1")
	assert.False(t, ok)
	assert.False(t, tr.Contains("staged2"))
	assert.True(t, tr.Contains("keep"))

	// Freed ids are handed out again.
	id, err := lex.Resolve("fresh")
	require.NoError(t, err)
	assert.Equal(t, mark, id)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openDB(t)
	lex := New(trie.New())
	for _, term := range []string{"neural", "network", "train"} {
		_, err := lex.Resolve(term)
		require.NoError(t, err)
	}
	require.NoError(t, lex.Save(db))

	tr := trie.New()
	loaded := New(tr)
	require.NoError(t, loaded.Load(db))

	assert.Equal(t, lex.Len(), loaded.Len())
	for _, term := range []string{"neural", "network", "train"} {
		want, _ := lex.Lookup(term)
		got, ok := loaded.Lookup(term)
		require.True(t, ok, "term %q lost in round trip", term)
		assert.Equal(t, want, got)
	}
	assert.True(t, tr.Contains("train"), "trie rebuilt on load")
}

func TestSaveFromAndDeleteFrom(t *testing.T) {
	db := openDB(t)
	lex := New(trie.New())
	_, err := lex.Resolve("base")
	require.NoError(t, err)
	require.NoError(t, lex.Save(db))

	mark := lex.NextTermID()
	_, err = lex.Resolve("incremental")
	require.NoError(t, err)
	require.NoError(t, lex.SaveFrom(db, mark))

	loaded := New(trie.New())
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, 2, loaded.Len())

	require.NoError(t, lex.DeleteFrom(db, mark))
	reloaded := New(trie.New())
	require.NoError(t, reloaded.Load(db))
	assert.Equal(t, 1, reloaded.Len())
	_, ok := reloaded.Lookup("incremental")
	assert.False(t, ok)
}
