// Package barrel implements the on-disk inverted index: posting lists
// partitioned into fixed-range barrels on the TermID axis, each barrel a
// self-describing file replaced atomically on update.
package barrel

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"time"

	"github.com/golang/snappy"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
)

// Barrel file layout: fixed header, snappy-compressed JSON posting blobs
// (one per term), JSON dictionary, crc32 footer over the dictionary.
const (
	magicBytes    uint32 = 0x42524C31 // "BRL1"
	formatVersion uint32 = 1
	headerSize           = 48
	footerSize           = 16
)

type barrelHeader struct {
	Magic      uint32
	Version    uint32
	Lo         uint32
	Hi         uint32
	TermCount  uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
}

// dictEntry locates one term's compressed posting blob within the file.
type dictEntry struct {
	ID      uint32 `json:"t"`
	Offset  int64  `json:"o"`
	Len     int    `json:"l"`
	DocFreq int    `json:"d"`
}

// writeBarrelFile writes a complete barrel to path and fsyncs it. The
// caller controls atomicity by writing to a temp path and renaming.
func writeBarrelFile(path string, lo, hi postings.TermID, lists map[postings.TermID]postings.PostingList) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating barrel file: %w", err)
	}
	defer f.Close()

	// Terms are written in ascending id order so the dictionary supports
	// binary search.
	ids := make([]postings.TermID, 0, len(lists))
	for id := range lists {
		if id < lo || id >= hi {
			return fmt.Errorf("term %d outside barrel range [%d,%d)", id, lo, hi)
		}
		if len(lists[id]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if _, err := f.Write(make([]byte, headerSize)); err != nil {
		return fmt.Errorf("writing header placeholder: %w", err)
	}

	dict := make([]dictEntry, 0, len(ids))
	offset := int64(0)
	for _, id := range ids {
		raw, err := json.Marshal(lists[id])
		if err != nil {
			return fmt.Errorf("marshaling postings for term %d: %w", id, err)
		}
		blob := snappy.Encode(nil, raw)
		if _, err := f.Write(blob); err != nil {
			return fmt.Errorf("writing postings for term %d: %w", id, err)
		}
		dict = append(dict, dictEntry{
			ID:      uint32(id),
			Offset:  offset,
			Len:     len(blob),
			DocFreq: len(lists[id]),
		})
		offset += int64(len(blob))
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(offset))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], magicBytes)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(lo))
	binary.LittleEndian.PutUint32(header[12:16], uint32(hi))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(ids)))
	binary.LittleEndian.PutUint64(header[24:32], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint64(header[32:40], uint64(headerSize)+uint64(offset))
	binary.LittleEndian.PutUint64(header[40:48], uint64(len(dictData)))
	if _, err := f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing barrel file: %w", err)
	}
	return nil
}

// readBarrelFile loads a full barrel into memory, verifying the magic
// bytes and the dictionary checksum. A corrupt error means the file must
// not be served from.
func readBarrelFile(path string) (lo, hi postings.TermID, lists map[postings.TermID]postings.PostingList, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("opening barrel file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, headerSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return 0, 0, nil, fmt.Errorf("reading barrel header: %w", err)
	}
	h := barrelHeader{
		Magic:      binary.LittleEndian.Uint32(headerBytes[0:4]),
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		Lo:         binary.LittleEndian.Uint32(headerBytes[8:12]),
		Hi:         binary.LittleEndian.Uint32(headerBytes[12:16]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[16:20]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
	}
	if h.Magic != magicBytes {
		return 0, 0, nil, &corruptError{path: path, reason: fmt.Sprintf("bad magic bytes %x", h.Magic)}
	}
	if h.Version != formatVersion {
		return 0, 0, nil, &corruptError{path: path, reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}

	dictData := make([]byte, h.DictSize)
	if _, err := f.ReadAt(dictData, h.DictOffset); err != nil {
		return 0, 0, nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, h.DictOffset+h.DictSize); err != nil {
		return 0, 0, nil, fmt.Errorf("reading footer: %w", err)
	}
	if crc32.ChecksumIEEE(dictData) != binary.LittleEndian.Uint32(footer[0:4]) {
		return 0, 0, nil, &corruptError{path: path, reason: "dictionary checksum mismatch"}
	}
	var dict []dictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return 0, 0, nil, &corruptError{path: path, reason: "unparseable dictionary"}
	}

	lists = make(map[postings.TermID]postings.PostingList, len(dict))
	for _, entry := range dict {
		blob := make([]byte, entry.Len)
		if _, err := f.ReadAt(blob, headerSize+entry.Offset); err != nil {
			return 0, 0, nil, fmt.Errorf("reading postings for term %d: %w", entry.ID, err)
		}
		raw, err := snappy.Decode(nil, blob)
		if err != nil {
			return 0, 0, nil, &corruptError{path: path, reason: fmt.Sprintf("term %d: %v", entry.ID, err)}
		}
		var pl postings.PostingList
		if err := json.Unmarshal(raw, &pl); err != nil {
			return 0, 0, nil, &corruptError{path: path, reason: fmt.Sprintf("term %d: unparseable postings", entry.ID)}
		}
		if !pl.Validate() {
			return 0, 0, nil, &corruptError{path: path, reason: fmt.Sprintf("term %d: posting-list invariant broken", entry.ID)}
		}
		lists[postings.TermID(entry.ID)] = pl
	}
	return postings.TermID(h.Lo), postings.TermID(h.Hi), lists, nil
}

// corruptError marks a barrel that must be quarantined rather than
// retried.
type corruptError struct {
	path   string
	reason string
}

func (e *corruptError) Error() string {
	return fmt.Sprintf("corrupt barrel %s: %s", e.path, e.reason)
}
