package barrel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
	"github.com/maryam-tariqq/DSA-Project/pkg/resilience"
)

// Options configures a Store.
type Options struct {
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	ReadRetryAttempts int
	ReadTimeout       time.Duration
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With("component", "barrel-store")
}

// Store is the barrel store: the boundary table plus lazily loaded
// resident barrels. Reads are safe for concurrent use; MergeBatch assumes
// the caller holds the index writer lock, as document additions are
// serialised above this layer.
type Store struct {
	dir         string
	logger      *slog.Logger
	m           *metrics.Metrics
	readRetry   resilience.RetryConfig
	readTimeout time.Duration

	sf singleflight.Group

	mu          sync.RWMutex
	width       uint32
	ranges      []Range
	resident    map[int]map[postings.TermID]postings.PostingList
	quarantined map[int]error
}

// Create bulk-builds the barrel files for the given posting lists,
// partitioning [0, nextTermID) into equal-width ranges sized to the byte
// budget, and returns an open Store. Barrels are written in parallel,
// every file to a temp path first; the manifest is committed last.
func Create(dir string, all map[postings.TermID]postings.PostingList, nextTermID postings.TermID, maxBytes int64, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating barrel directory: %w", err)
	}

	sizes := make(map[postings.TermID]int64, len(all))
	for id, pl := range all {
		sizes[id] = estimateListSize(pl)
	}
	width := planWidth(func(id postings.TermID) int64 { return sizes[id] }, nextTermID, maxBytes)

	var ranges []Range
	for lo := postings.TermID(0); lo < nextTermID; lo += postings.TermID(width) {
		hi := lo + postings.TermID(width)
		ranges = append(ranges, Range{Lo: lo, Hi: hi, File: barrelFileName(lo)})
	}

	var g errgroup.Group
	g.SetLimit(4)
	for _, r := range ranges {
		g.Go(func() error {
			lists := make(map[postings.TermID]postings.PostingList)
			for id := r.Lo; id < r.Hi; id++ {
				if pl, ok := all[id]; ok {
					lists[id] = pl
				}
			}
			tmp := filepath.Join(dir, r.File+".tmp")
			if err := writeBarrelFile(tmp, r.Lo, r.Hi, lists); err != nil {
				return fmt.Errorf("%w: barrel [%d,%d): %v", apperrors.ErrBarrelIO, r.Lo, r.Hi, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		removeTempFiles(dir, ranges)
		return nil, err
	}
	for _, r := range ranges {
		path := filepath.Join(dir, r.File)
		if err := os.Rename(path+".tmp", path); err != nil {
			return nil, fmt.Errorf("%w: committing barrel %s: %v", apperrors.ErrBarrelIO, r.File, err)
		}
	}
	if err := writeManifest(dir, manifest{Width: width, Barrels: ranges}); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBarrelIO, err)
	}

	s := newStore(dir, width, ranges, opts)
	s.logger.Info("barrels built",
		"barrels", len(ranges),
		"width", width,
		"terms", nextTermID,
	)
	return s, nil
}

// Open loads the boundary table of an existing barrel directory. Barrel
// contents are loaded lazily on first access.
func Open(dir string, opts Options) (*Store, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBarrelIO, err)
	}
	return newStore(dir, m.Width, m.Barrels, opts), nil
}

func newStore(dir string, width uint32, ranges []Range, opts Options) *Store {
	return &Store{
		dir:    dir,
		logger: opts.logger(),
		m:      opts.Metrics,
		readRetry: resilience.RetryConfig{
			MaxAttempts: opts.ReadRetryAttempts,
		},
		readTimeout: opts.ReadTimeout,
		width:       width,
		ranges:      ranges,
		resident:    make(map[int]map[postings.TermID]postings.PostingList),
		quarantined: make(map[int]error),
	}
}

// NumBarrels returns the number of barrel ranges.
func (s *Store) NumBarrels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranges)
}

// Quarantined returns the number of barrels refusing to serve.
func (s *Store) Quarantined() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quarantined)
}

// PostingsFor returns the posting list for the term, loading the owning
// barrel if it is not resident. Terms with no postings (including ids
// beyond the partitioned space) yield an empty list, not an error.
func (s *Store) PostingsFor(ctx context.Context, term postings.TermID) (postings.PostingList, error) {
	s.mu.RLock()
	idx := s.ownerLocked(term)
	if idx < 0 {
		s.mu.RUnlock()
		return nil, nil
	}
	if err, bad := s.quarantined[idx]; bad {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: barrel %d quarantined: %v", apperrors.ErrInvariantViolation, idx, err)
	}
	if lists, ok := s.resident[idx]; ok {
		s.mu.RUnlock()
		return lists[term], nil
	}
	r := s.ranges[idx]
	s.mu.RUnlock()

	// Concurrent readers of the same cold barrel share one load.
	v, err, _ := s.sf.Do(r.File, func() (any, error) {
		return s.load(ctx, idx, r)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[postings.TermID]postings.PostingList)[term], nil
}

// ownerLocked maps a TermID to its barrel index. Equal-width ranges make
// this a division; the boundary table is kept for verification and
// persistence.
func (s *Store) ownerLocked(term postings.TermID) int {
	if s.width == 0 || len(s.ranges) == 0 {
		return -1
	}
	idx := int(term / postings.TermID(s.width))
	if idx >= len(s.ranges) {
		return -1
	}
	return idx
}

// load reads one barrel with bounded retries and a read timeout,
// quarantining it on corruption.
func (s *Store) load(ctx context.Context, idx int, r Range) (map[postings.TermID]postings.PostingList, error) {
	var lists map[postings.TermID]postings.PostingList
	attempted := 0
	err := resilience.WithTimeout(ctx, s.readTimeout, fmt.Sprintf("load barrel %s", r.File), func(ctx context.Context) error {
		return resilience.Retry(ctx, "barrel-read", s.readRetry, func() error {
			attempted++
			lo, hi, loaded, err := readBarrelFile(filepath.Join(s.dir, r.File))
			if err != nil {
				var corrupt *corruptError
				if errors.As(err, &corrupt) {
					// Corruption is permanent; stop retrying by
					// remembering it immediately.
					s.quarantine(idx, err)
					return nil
				}
				return err
			}
			if lo != r.Lo || hi != r.Hi {
				s.quarantine(idx, fmt.Errorf("range mismatch: file [%d,%d), manifest [%d,%d)", lo, hi, r.Lo, r.Hi))
				return nil
			}
			lists = loaded
			return nil
		})
	})
	if err != nil {
		s.countLoad("failed")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBarrelIO, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if qerr, bad := s.quarantined[idx]; bad {
		s.countLoad("failed")
		return nil, fmt.Errorf("%w: barrel %d quarantined: %v", apperrors.ErrInvariantViolation, idx, qerr)
	}
	s.resident[idx] = lists
	if attempted > 1 {
		s.countLoad("retried")
	} else {
		s.countLoad("ok")
	}
	return lists, nil
}

func (s *Store) quarantine(idx int, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, already := s.quarantined[idx]; already {
		return
	}
	s.quarantined[idx] = cause
	s.logger.Error("barrel quarantined", "barrel", idx, "error", cause)
	if s.m != nil {
		s.m.BarrelsQuarantined.Set(float64(len(s.quarantined)))
	}
}

func (s *Store) countLoad(status string) {
	if s.m != nil {
		s.m.BarrelLoadsTotal.WithLabelValues(status).Inc()
	}
}

// Merge inserts or replaces a single posting in the owning barrel,
// rewriting only that barrel atomically.
func (s *Store) Merge(ctx context.Context, term postings.TermID, p postings.Posting) error {
	_, err := s.MergeBatch(ctx, map[postings.TermID]postings.Posting{term: p})
	return err
}

// MergeBatch applies one document's postings to every affected barrel as a
// unit: all touched barrels are rewritten to temp files first, then
// renamed, then the manifest is updated if the TermID space grew. Barrels
// not touched are left byte-for-byte intact. On success it returns a
// restore function that undoes the batch (the compensating action for a
// failed enclosing transaction).
//
// The caller must hold the index writer lock: document additions are
// serialised, so no readers run concurrently with a merge.
func (s *Store) MergeBatch(ctx context.Context, updates map[postings.TermID]postings.Posting) (func() error, error) {
	if len(updates) == 0 {
		return func() error { return nil }, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	width := s.width
	if width == 0 {
		width = defaultWidth
	}
	oldRanges := s.ranges
	newRanges := s.ranges

	var maxTerm postings.TermID
	for id := range updates {
		if id > maxTerm {
			maxTerm = id
		}
	}
	// Extend the partition with fresh equal-width ranges until the new
	// term ids are covered, keeping the no-gap invariant.
	var created []Range
	for nextLo := coveredHi(newRanges); maxTerm >= nextLo; nextLo = coveredHi(newRanges) {
		r := Range{Lo: nextLo, Hi: nextLo + postings.TermID(width), File: barrelFileName(nextLo)}
		newRanges = append(newRanges[:len(newRanges):len(newRanges)], r)
		created = append(created, r)
	}

	// Stage merged contents per affected barrel, keeping pre-images for
	// rollback.
	staged := make(map[int]map[postings.TermID]postings.PostingList)
	preImages := make(map[int]map[postings.TermID]postings.PostingList)
	for id, p := range updates {
		idx := int(id / postings.TermID(width))
		if _, ok := staged[idx]; !ok {
			if idx < len(oldRanges) {
				if err, bad := s.quarantined[idx]; bad {
					return nil, fmt.Errorf("%w: barrel %d quarantined: %v", apperrors.ErrInvariantViolation, idx, err)
				}
				current, err := s.residentOrLoad(ctx, idx)
				if err != nil {
					return nil, err
				}
				preImages[idx] = current
				staged[idx] = copyLists(current)
			} else {
				staged[idx] = make(map[postings.TermID]postings.PostingList)
			}
		}
		staged[idx][id] = staged[idx][id].Upsert(p)
	}

	// Phase 1: every rewrite goes to a temp file; nothing committed yet.
	for idx, lists := range staged {
		r := newRanges[idx]
		tmp := filepath.Join(s.dir, r.File+".tmp")
		if err := writeBarrelFile(tmp, r.Lo, r.Hi, lists); err != nil {
			removeTempFiles(s.dir, rangesOf(staged, newRanges))
			return nil, fmt.Errorf("%w: staging barrel %s: %v", apperrors.ErrBarrelIO, r.File, err)
		}
	}

	// Phase 2: commit with renames, then the manifest.
	for idx := range staged {
		r := newRanges[idx]
		path := filepath.Join(s.dir, r.File)
		if err := os.Rename(path+".tmp", path); err != nil {
			s.restoreFiles(preImages, created, oldRanges, newRanges)
			return nil, fmt.Errorf("%w: committing barrel %s: %v", apperrors.ErrBarrelIO, r.File, err)
		}
	}
	if len(created) > 0 {
		if err := writeManifest(s.dir, manifest{Width: width, Barrels: newRanges}); err != nil {
			s.restoreFiles(preImages, created, oldRanges, newRanges)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrBarrelIO, err)
		}
	}

	// Publish in-memory state.
	s.width = width
	s.ranges = newRanges
	for idx, lists := range staged {
		s.resident[idx] = lists
	}
	if s.m != nil {
		s.m.BarrelRewritesTotal.Add(float64(len(staged)))
	}

	restore := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.restoreFiles(preImages, created, oldRanges, newRanges); err != nil {
			return err
		}
		s.width = width
		s.ranges = oldRanges
		for idx := range staged {
			if pre, ok := preImages[idx]; ok {
				s.resident[idx] = pre
			} else {
				delete(s.resident, idx)
			}
		}
		return nil
	}
	return restore, nil
}

// residentOrLoad returns a barrel's contents, reading it from disk if
// needed. Caller holds s.mu.
func (s *Store) residentOrLoad(ctx context.Context, idx int) (map[postings.TermID]postings.PostingList, error) {
	if lists, ok := s.resident[idx]; ok {
		return lists, nil
	}
	r := s.ranges[idx]
	var lists map[postings.TermID]postings.PostingList
	err := resilience.WithTimeout(ctx, s.readTimeout, fmt.Sprintf("load barrel %s", r.File), func(ctx context.Context) error {
		return resilience.Retry(ctx, "barrel-read", s.readRetry, func() error {
			_, _, loaded, err := readBarrelFile(filepath.Join(s.dir, r.File))
			if err != nil {
				var corrupt *corruptError
				if errors.As(err, &corrupt) {
					s.quarantined[idx] = err
					return nil
				}
				return err
			}
			lists = loaded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBarrelIO, err)
	}
	if qerr, bad := s.quarantined[idx]; bad {
		return nil, fmt.Errorf("%w: barrel %d quarantined: %v", apperrors.ErrInvariantViolation, idx, qerr)
	}
	s.resident[idx] = lists
	return lists, nil
}

// restoreFiles rewrites pre-image barrels, deletes barrels created by the
// failed batch, and restores the previous manifest.
func (s *Store) restoreFiles(preImages map[int]map[postings.TermID]postings.PostingList, created []Range, oldRanges, newRanges []Range) error {
	var firstErr error
	for idx, lists := range preImages {
		r := newRanges[idx]
		tmp := filepath.Join(s.dir, r.File+".tmp")
		if err := writeBarrelFile(tmp, r.Lo, r.Hi, lists); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.Rename(tmp, filepath.Join(s.dir, r.File)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, r := range created {
		os.Remove(filepath.Join(s.dir, r.File))
		os.Remove(filepath.Join(s.dir, r.File+".tmp"))
	}
	if len(created) > 0 {
		if err := writeManifest(s.dir, manifest{Width: s.width, Barrels: oldRanges}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: restoring barrels: %v", apperrors.ErrBarrelIO, firstErr)
	}
	return nil
}

// VerifyPartition checks the partition invariant: ranges are contiguous
// equal-width windows starting at 0 whose union covers [0, nextTermID)
// with no gaps or overlaps.
func (s *Store) VerifyPartition(nextTermID postings.TermID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ranges) == 0 {
		if nextTermID != 0 {
			return fmt.Errorf("%w: %d terms allocated but no barrels", apperrors.ErrInvariantViolation, nextTermID)
		}
		return nil
	}
	if s.ranges[0].Lo != 0 {
		return fmt.Errorf("%w: first barrel starts at %d", apperrors.ErrInvariantViolation, s.ranges[0].Lo)
	}
	for i, r := range s.ranges {
		if r.Hi <= r.Lo {
			return fmt.Errorf("%w: barrel %d has empty range [%d,%d)", apperrors.ErrInvariantViolation, i, r.Lo, r.Hi)
		}
		if uint32(r.Hi-r.Lo) != s.width {
			return fmt.Errorf("%w: barrel %d width %d, expected %d", apperrors.ErrInvariantViolation, i, r.Hi-r.Lo, s.width)
		}
		if i > 0 && r.Lo != s.ranges[i-1].Hi {
			return fmt.Errorf("%w: gap or overlap between barrels %d and %d", apperrors.ErrInvariantViolation, i-1, i)
		}
	}
	if hi := s.ranges[len(s.ranges)-1].Hi; hi < nextTermID {
		return fmt.Errorf("%w: term space [0,%d) exceeds barrel coverage [0,%d)", apperrors.ErrInvariantViolation, nextTermID, hi)
	}
	return nil
}

func coveredHi(ranges []Range) postings.TermID {
	if len(ranges) == 0 {
		return 0
	}
	return ranges[len(ranges)-1].Hi
}

func copyLists(src map[postings.TermID]postings.PostingList) map[postings.TermID]postings.PostingList {
	dst := make(map[postings.TermID]postings.PostingList, len(src))
	for id, pl := range src {
		dst[id] = pl
	}
	return dst
}

func rangesOf(staged map[int]map[postings.TermID]postings.PostingList, ranges []Range) []Range {
	out := make([]Range, 0, len(staged))
	for idx := range staged {
		out = append(out, ranges[idx])
	}
	return out
}

func removeTempFiles(dir string, ranges []Range) {
	for _, r := range ranges {
		os.Remove(filepath.Join(dir, r.File+".tmp"))
	}
}
