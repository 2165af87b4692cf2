// Package search executes parsed queries against the index: term
// resolution, tf-idf scoring with field weights and coverage, a
// positional proximity bonus, and bounded top-K selection.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maryam-tariqq/DSA-Project/internal/analytics"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	"github.com/maryam-tariqq/DSA-Project/internal/search/cache"
	"github.com/maryam-tariqq/DSA-Project/internal/textproc"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
)

// Result is one ranked hit with enough metadata to render a result row.
type Result struct {
	DocID      postings.DocID `json:"doc_id"`
	ExternalID string         `json:"id,omitempty"`
	Title      string         `json:"title"`
	Authors    string         `json:"authors,omitempty"`
	Score      float64        `json:"score"`
}

// Engine answers search and autocomplete requests against one Index.
type Engine struct {
	idx       *index.Index
	cfg       config.SearchConfig
	logger    *slog.Logger
	m         *metrics.Metrics
	cache     *cache.Cache
	collector *analytics.Collector
	sf        singleflight.Group
}

// New wires the engine. cache and collector may be nil; the engine then
// runs uncached and without analytics.
func New(idx *index.Index, cfg config.SearchConfig, m *metrics.Metrics, c *cache.Cache, collector *analytics.Collector) *Engine {
	return &Engine{
		idx:       idx,
		cfg:       cfg,
		logger:    logger.WithComponent("search"),
		m:         m,
		cache:     c,
		collector: collector,
	}
}

// Search parses, executes, and ranks the query. mode is the wire-level
// mode string ("", "any", "all"); limit <= 0 means the configured
// default. An empty or all-stop-word query returns an empty result set,
// not an error.
func (e *Engine) Search(ctx context.Context, query, mode string, limit int) ([]Result, error) {
	start := time.Now()
	m, err := ParseMode(mode)
	if err != nil {
		e.countQuery(mode, "invalid")
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	plan := Parse(query, m)
	if len(plan.Terms) == 0 {
		e.countQuery(plan.Mode.String(), "empty")
		return []Result{}, nil
	}

	results, cacheHit, err := e.cachedExecute(ctx, plan, limit)
	if err != nil {
		e.countQuery(plan.Mode.String(), "error")
		return nil, err
	}
	e.countQuery(plan.Mode.String(), "ok")
	e.observe(cacheHit, time.Since(start), len(results))
	e.collector.Track(analytics.SearchEvent{
		Query:      plan.RawQuery,
		Mode:       plan.Mode.String(),
		NumResults: len(results),
		TookMS:     time.Since(start).Milliseconds(),
		CacheHit:   cacheHit,
		Timestamp:  start.UTC(),
	})
	return results, nil
}

// cachedExecute checks the version-keyed cache and collapses concurrent
// identical queries onto one execution.
func (e *Engine) cachedExecute(ctx context.Context, plan *Plan, limit int) ([]Result, bool, error) {
	if e.cache == nil {
		results, err := e.execute(ctx, plan, limit)
		return results, false, err
	}

	var version uint64
	if err := e.idx.View(func(v *index.View) error {
		version = v.Version()
		return nil
	}); err != nil {
		return nil, false, err
	}
	key := cache.Key(version, plan.RawQuery, plan.Mode.String(), limit)

	if payload, ok := e.cache.Get(ctx, key); ok {
		var results []Result
		if err := json.Unmarshal(payload, &results); err == nil {
			return results, true, nil
		}
		e.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	val, err, _ := e.sf.Do(key, func() (interface{}, error) {
		results, err := e.execute(ctx, plan, limit)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(results); err == nil {
			e.cache.Set(ctx, key, payload)
		}
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]Result), false, nil
}

// execute runs the query under one consistent read view.
func (e *Engine) execute(ctx context.Context, plan *Plan, limit int) ([]Result, error) {
	var results []Result
	err := e.idx.View(func(v *index.View) error {
		sc := &scorer{cfg: e.cfg, totalDocs: v.DocCount()}

		termIDs, lists, err := e.resolve(ctx, v, plan.Terms)
		if err != nil {
			return err
		}
		if len(lists) == 0 {
			results = []Result{}
			return nil
		}
		excluded, err := e.excludedDocs(ctx, v, plan.Exclude)
		if err != nil {
			return err
		}

		var scored []scoredDoc
		if plan.Mode == ModeAll {
			if len(lists) < len(plan.Terms) {
				// A missing term makes a conjunctive query unsatisfiable.
				results = []Result{}
				return nil
			}
			scored = e.scoreConjunctive(sc, lists, excluded)
		} else {
			scored = e.scoreDisjunctive(sc, lists, len(plan.Terms), excluded)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(plan.Terms) >= 2 {
			e.applyProximity(sc, v, termIDs, scored)
		}

		top := topK(scored, limit)
		results = make([]Result, 0, len(top))
		for _, s := range top {
			r := Result{DocID: s.Doc, Score: s.Score}
			if meta, ok := v.Meta(s.Doc); ok {
				r.ExternalID = meta.ID
				r.Title = meta.Title
				r.Authors = meta.Authors
			}
			results = append(results, r)
		}
		return nil
	})
	return results, err
}

// resolve maps terms to posting lists, silently dropping terms the
// lexicon has never seen.
func (e *Engine) resolve(ctx context.Context, v *index.View, terms []string) ([]postings.TermID, []postings.PostingList, error) {
	ids := make([]postings.TermID, 0, len(terms))
	lists := make([]postings.PostingList, 0, len(terms))
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		id, ok := v.Lookup(term)
		if !ok {
			continue
		}
		pl, err := v.PostingsFor(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if len(pl) == 0 {
			continue
		}
		ids = append(ids, id)
		lists = append(lists, pl)
	}
	return ids, lists, nil
}

func (e *Engine) excludedDocs(ctx context.Context, v *index.View, terms []string) (map[postings.DocID]struct{}, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	excluded := make(map[postings.DocID]struct{})
	for _, term := range terms {
		id, ok := v.Lookup(term)
		if !ok {
			continue
		}
		pl, err := v.PostingsFor(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, p := range pl {
			excluded[p.Doc] = struct{}{}
		}
	}
	return excluded, nil
}

func (e *Engine) scoreDisjunctive(sc *scorer, lists []postings.PostingList, queryLen int, excluded map[postings.DocID]struct{}) []scoredDoc {
	type acc struct {
		score   float64
		matched int
	}
	accs := make(map[postings.DocID]*acc)
	for _, pl := range lists {
		idf := sc.idf(len(pl))
		for _, p := range pl {
			if _, skip := excluded[p.Doc]; skip {
				continue
			}
			a := accs[p.Doc]
			if a == nil {
				a = &acc{}
				accs[p.Doc] = a
			}
			a.score += sc.weightedTF(p) * idf
			a.matched++
		}
	}
	scored := make([]scoredDoc, 0, len(accs))
	for doc, a := range accs {
		scored = append(scored, scoredDoc{
			Doc:   doc,
			Score: a.score * sc.coverage(a.matched, queryLen),
		})
	}
	return scored
}

func (e *Engine) scoreConjunctive(sc *scorer, lists []postings.PostingList, excluded map[postings.DocID]struct{}) []scoredDoc {
	docs := postings.Intersect(lists)
	idfs := make([]float64, len(lists))
	for i, pl := range lists {
		idfs[i] = sc.idf(len(pl))
	}
	scored := make([]scoredDoc, 0, len(docs))
	for _, doc := range docs {
		if _, skip := excluded[doc]; skip {
			continue
		}
		var score float64
		for i, pl := range lists {
			if j, ok := pl.Find(doc); ok {
				score += sc.weightedTF(pl[j]) * idfs[i]
			}
		}
		// Every term matched, so coverage is its maximum and equal for
		// all survivors; it still scales scores consistently with the
		// disjunctive path.
		scored = append(scored, scoredDoc{Doc: doc, Score: score * sc.coverage(1, 1)})
	}
	return scored
}

// applyProximity boosts the strongest base-scored documents whose query
// terms appear close together. Only the top cfg.MaxProximityDocs are
// examined to bound forward-index walks.
func (e *Engine) applyProximity(sc *scorer, v *index.View, termIDs []postings.TermID, scored []scoredDoc) {
	if len(termIDs) < 2 || len(scored) == 0 {
		return
	}
	n := e.cfg.MaxProximityDocs
	if n <= 0 || n > len(scored) {
		n = len(scored)
	}
	// Partially order so the examined prefix is the strongest docs.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Doc < scored[j].Doc
	})

	termIdx := make(map[postings.TermID]int, len(termIDs))
	for i, id := range termIDs {
		termIdx[id] = i
	}
	for i := 0; i < n; i++ {
		entries := v.EntriesFor(scored[i].Doc)
		occs := make([]occurrence, 0, len(entries))
		for _, ent := range entries {
			if ti, ok := termIdx[ent.Term]; ok {
				occs = append(occs, occurrence{pos: ent.Position, term: ti})
			}
		}
		span := minSpan(occs, len(termIDs))
		scored[i].Score *= sc.proximityBonus(span)
	}
}

// Autocomplete returns completions of the normalized prefix. An empty
// prefix after normalization yields no completions.
func (e *Engine) Autocomplete(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	norm := textproc.NormalizePrefix(prefix)
	if norm == "" {
		return []string{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	err := e.idx.View(func(v *index.View) error {
		completions := v.Autocomplete(norm, limit)
		out = make([]string, 0, len(completions))
		for _, c := range completions {
			out = append(out, c.Term)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.m != nil {
		e.m.AutocompleteTotal.Inc()
	}
	return out, nil
}

func (e *Engine) countQuery(mode, outcome string) {
	if e.m != nil {
		e.m.SearchQueriesTotal.WithLabelValues(mode, outcome).Inc()
	}
}

func (e *Engine) observe(cacheHit bool, took time.Duration, numResults int) {
	if e.m == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	e.m.SearchLatency.WithLabelValues(status).Observe(took.Seconds())
	e.m.SearchResultsCount.Observe(float64(numResults))
}
