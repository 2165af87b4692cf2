package barrel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
)

const (
	manifestName = "manifest.json"
	// defaultWidth is used when the index is built over an empty corpus
	// and no size estimate exists yet.
	defaultWidth = 1024
)

// Range is one entry of the boundary table: barrel file covering TermIDs
// [Lo, Hi).
type Range struct {
	Lo   postings.TermID `json:"lo"`
	Hi   postings.TermID `json:"hi"`
	File string          `json:"file"`
}

// manifest is the persisted boundary table.
type manifest struct {
	Width   uint32  `json:"width"`
	Barrels []Range `json:"barrels"`
}

// planWidth picks the partition width: ranges are equal-width on the
// TermID axis, with the width halved until every window's estimated
// serialized size fits the budget (or the window holds a single term).
func planWidth(sizeOf func(postings.TermID) int64, nextTermID postings.TermID, maxBytes int64) uint32 {
	if nextTermID == 0 {
		return defaultWidth
	}
	width := uint32(nextTermID)
	for width > 1 {
		if widestWindow(sizeOf, nextTermID, width) <= maxBytes {
			break
		}
		width /= 2
	}
	if width == 0 {
		width = 1
	}
	return width
}

func widestWindow(sizeOf func(postings.TermID) int64, nextTermID postings.TermID, width uint32) int64 {
	var worst int64
	for lo := postings.TermID(0); lo < nextTermID; lo += postings.TermID(width) {
		var sum int64
		hi := lo + postings.TermID(width)
		for id := lo; id < hi && id < nextTermID; id++ {
			sum += sizeOf(id)
		}
		if sum > worst {
			worst = sum
		}
	}
	return worst
}

// estimateListSize approximates the serialized size of a posting list,
// used only for partition planning.
func estimateListSize(pl postings.PostingList) int64 {
	size := int64(0)
	for _, p := range pl {
		size += 40 + 8*int64(len(p.Positions))
	}
	return size
}

func barrelFileName(lo postings.TermID) string {
	return fmt.Sprintf("barrel_%08d.brl", lo)
}

// writeManifest persists the boundary table with the same
// write-new-then-rename discipline as the barrels themselves.
func writeManifest(dir string, m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, manifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

func readManifest(dir string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}
