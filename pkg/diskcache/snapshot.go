package diskcache

import (
	"fmt"
	"io"
	"os"
)

// Snapshot is a point-in-time, consistent view of one entry's committed values, returned by
// DiskCache.Get. Resolving SPEC_FULL.md §8 Open Question #3: rather than returning bare paths
// that a concurrent trim or re-edit could rename or unlink out from under the caller, Get opens
// every value's clean file while still holding the cache lock and hands the caller those open
// file descriptors. On POSIX, an open descriptor keeps referring to the same inode even if the
// directory entry is later renamed or removed, so the snapshot's bytes stay valid regardless of
// what happens to the cache afterward. Callers must call Close when done.
type Snapshot struct {
	cache          *DiskCache
	key            string
	sequenceNumber int64
	files          []*os.File
	lengths        []int64
	closed         bool
}

// newSnapshot opens clean files for every value index of e. Must be called with c.mu held.
func newSnapshot(c *DiskCache, e *entry) (*Snapshot, error) {
	files := make([]*os.File, c.valueCount)
	for i := 0; i < c.valueCount; i++ {
		f, err := os.Open(cleanPath(c.dir, e.key, i))
		if err != nil {
			for _, opened := range files {
				if opened != nil {
					_ = opened.Close()
				}
			}
			return nil, fmt.Errorf("diskcache: failed to open value index %d: %w", i, err)
		}
		files[i] = f
	}
	lengths := make([]int64, len(e.lengths))
	copy(lengths, e.lengths)
	return &Snapshot{cache: c, key: e.key, sequenceNumber: e.sequenceNumber, files: files, lengths: lengths}, nil
}

// File returns the pinned, already-open file for value index i, seeked to its start.
func (s *Snapshot) File(i int) (*os.File, error) {
	if i < 0 || i >= len(s.files) {
		return nil, fmt.Errorf("%w: value index %d out of range", ErrIllegalState, i)
	}
	if _, err := s.files[i].Seek(0, 0); err != nil {
		return nil, fmt.Errorf("diskcache: failed to seek snapshot file: %w", err)
	}
	return s.files[i], nil
}

// Length returns the committed byte length of value index i as of the snapshot's creation.
func (s *Snapshot) Length(i int) int64 {
	return s.lengths[i]
}

// Bytes reads the full committed content of value index i from the pinned file handle.
func (s *Snapshot) Bytes(i int) ([]byte, error) {
	f, err := s.File(i)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.lengths[i])
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("diskcache: failed to read snapshot value index %d: %w", i, err)
	}
	return buf, nil
}

// String is Bytes with the result converted to a string, for callers of the public interface
// that prefer to work in terms of strings rather than raw bytes.
func (s *Snapshot) String(i int) (string, error) {
	b, err := s.Bytes(i)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Edit opens an editor for this snapshot's key, but only if no other commit has landed since
// the snapshot was taken; otherwise it returns (nil, nil), mirroring DiskCache.Edit's
// already-being-edited case so callers can treat both as "try again" (the sequence-number
// stale check of SPEC_FULL.md §4.1).
func (s *Snapshot) Edit() (*Editor, error) {
	return s.cache.editInternal(s.key, s.sequenceNumber, true)
}

// Close releases every pinned file handle. Safe to call more than once.
func (s *Snapshot) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("diskcache: failed to close snapshot file: %w", err)
		}
	}
	return firstErr
}
