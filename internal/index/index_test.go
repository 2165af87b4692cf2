package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
)

func testConfig(t *testing.T) config.IndexConfig {
	t.Helper()
	return config.IndexConfig{
		DataDir:           t.TempDir(),
		BarrelMaxBytes:    1 << 20,
		ReadRetryAttempts: 2,
		ReadTimeout:       5 * time.Second,
		RankAutocomplete:  false,
	}
}

func testCorpus() []docstore.Document {
	return []docstore.Document{
		{ID: "p0", Title: "neural network training"},
		{ID: "p1", Title: "deep learning network"},
	}
}

func buildIndex(t *testing.T, cfg config.IndexConfig) *Index {
	t.Helper()
	ix, err := Build(cfg, nil, testCorpus())
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func postingsForTerm(t *testing.T, ix *Index, term string) postings.PostingList {
	t.Helper()
	var pl postings.PostingList
	require.NoError(t, ix.View(func(v *View) error {
		id, ok := v.Lookup(term)
		if !ok {
			return nil
		}
		var err error
		pl, err = v.PostingsFor(context.Background(), id)
		return err
	}))
	return pl
}

func TestBuildIndexesCorpus(t *testing.T) {
	ix := buildIndex(t, testConfig(t))

	stats := ix.Stats()
	assert.Equal(t, 2, stats.Documents)
	// neural, network, train, deep, learn
	assert.Equal(t, 5, stats.Terms)
	assert.Equal(t, int64(6), stats.TotalTokens, "three tokens per title")

	pl := postingsForTerm(t, ix, "network")
	require.Len(t, pl, 2, "network occurs in both documents")
	assert.Equal(t, postings.DocID(0), pl[0].Doc)
	assert.Equal(t, postings.DocID(1), pl[1].Doc)
	assert.True(t, pl.Validate())

	pl = postingsForTerm(t, ix, "train")
	require.Len(t, pl, 1)
	assert.Equal(t, postings.DocID(0), pl[0].Doc)
}

func TestOpenRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	ix, err := Build(cfg, nil, testCorpus())
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	reopened, err := Open(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 5, stats.Terms)
	assert.Equal(t, int64(6), stats.TotalTokens)

	pl := postingsForTerm(t, reopened, "network")
	assert.Len(t, pl, 2)

	require.NoError(t, reopened.View(func(v *View) error {
		meta, ok := v.Meta(1)
		require.True(t, ok)
		assert.Equal(t, "p1", meta.ID)
		completions := v.Autocomplete("ne", 10)
		assert.Len(t, completions, 2, "neural and network survive the reopen")
		return nil
	}))
}

func TestAddDocumentVisibleAfterCommit(t *testing.T) {
	ix := buildIndex(t, testConfig(t))
	ctx := context.Background()

	versionBefore := ix.Stats().Version
	doc, err := ix.AddDocument(ctx, docstore.Document{
		ID:    "p2",
		Title: "graph neural models",
	})
	require.NoError(t, err)
	assert.Equal(t, postings.DocID(2), doc)

	stats := ix.Stats()
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, versionBefore+1, stats.Version)

	// Existing term gains the new document.
	pl := postingsForTerm(t, ix, "neural")
	require.Len(t, pl, 2)
	assert.Equal(t, postings.DocID(2), pl[1].Doc)

	// New terms are allocated and served.
	pl = postingsForTerm(t, ix, "graph")
	require.Len(t, pl, 1)
	assert.Equal(t, postings.DocID(2), pl[0].Doc)
}

func TestAddDocumentDurable(t *testing.T) {
	cfg := testConfig(t)
	ix, err := Build(cfg, nil, testCorpus())
	require.NoError(t, err)
	_, err = ix.AddDocument(context.Background(), docstore.Document{ID: "p2", Title: "graph models"})
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	reopened, err := Open(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.Stats().Documents)
	pl := postingsForTerm(t, reopened, "graph")
	require.Len(t, pl, 1)

	// The next id continues past the reopened watermark.
	doc, err := reopened.AddDocument(context.Background(), docstore.Document{ID: "p3", Title: "another model"})
	require.NoError(t, err)
	assert.Equal(t, postings.DocID(3), doc)
}

func TestAddDocumentDuplicateExternalID(t *testing.T) {
	ix := buildIndex(t, testConfig(t))

	stats := ix.Stats()
	_, err := ix.AddDocument(context.Background(), docstore.Document{ID: "p0", Title: "copy"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDocument)
	assert.Equal(t, stats, ix.Stats(), "failed add leaves the index unchanged")
}

func TestAddDocumentWithNoTerms(t *testing.T) {
	ix := buildIndex(t, testConfig(t))

	stats := ix.Stats()
	_, err := ix.AddDocument(context.Background(), docstore.Document{ID: "px", Title: "the of and"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, stats, ix.Stats())
}

func TestAddDocumentAfterClose(t *testing.T) {
	cfg := testConfig(t)
	ix, err := Build(cfg, nil, testCorpus())
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	_, err = ix.AddDocument(context.Background(), docstore.Document{ID: "p9", Title: "late"})
	assert.ErrorIs(t, err, apperrors.ErrClosed)
}

func TestViewAfterClose(t *testing.T) {
	cfg := testConfig(t)
	ix, err := Build(cfg, nil, testCorpus())
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	err = ix.View(func(v *View) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrClosed)
}

func TestConcurrentReadersDuringAdds(t *testing.T) {
	ix := buildIndex(t, testConfig(t))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			pl := postingsForTerm(t, ix, "network")
			// Readers see the pre-add state (2 docs) or a committed add,
			// never a partial one.
			assert.GreaterOrEqual(t, len(pl), 2)
			assert.True(t, pl.Validate())
		}
	}()

	for i := 0; i < 5; i++ {
		_, err := ix.AddDocument(ctx, docstore.Document{
			Title: "network study number",
		})
		require.NoError(t, err)
	}
	<-done

	pl := postingsForTerm(t, ix, "network")
	assert.Len(t, pl, 7)
}
