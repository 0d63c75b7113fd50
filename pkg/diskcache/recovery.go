// This file implements startup recovery: §4.1's backup-promotion rule, and §4.2's
// read_journal/process_journal replay that rebuilds the in-memory entry index from the
// on-disk journal after a crash.
package diskcache

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// promoteBackupIfNeeded implements the §4.1 recovery rule for the compaction rename sequence:
// if journal.bkp exists it indicates a mid-compaction crash. Promote it to journal unless a
// current journal already won the race, in which case the backup is just garbage to delete.
func promoteBackupIfNeeded(dir string) error {
	bkpPath := filepath.Join(dir, journalBkpFileName)
	journalPath := filepath.Join(dir, journalFileName)

	if _, err := os.Stat(bkpPath); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("diskcache: failed to stat journal backup: %w", err)
	}

	if _, err := os.Stat(journalPath); err == nil {
		// A current journal already exists; the backup is a leftover from a completed
		// compaction and can simply be discarded.
		return os.Remove(bkpPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("diskcache: failed to stat journal: %w", err)
	}

	if err := os.Rename(bkpPath, journalPath); err != nil {
		return fmt.Errorf("diskcache: failed to promote journal backup: %w", err)
	}
	return nil
}

// wipeDirectory deletes every file directly under dir, used when the journal is unparseable.
func wipeDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("diskcache: failed to list cache directory for wipe: %w", err)
	}
	for _, de := range entries {
		if err := os.RemoveAll(filepath.Join(dir, de.Name())); err != nil {
			return fmt.Errorf("diskcache: failed to wipe cache directory: %w", err)
		}
	}
	return nil
}

// readJournalResult carries the outcome of parsing the existing journal. order records the
// sequence in which keys were touched (created, committed, or read) so that the rebuilt LRU
// list reflects actual history rather than Go's unspecified map iteration order.
type readJournalResult struct {
	entries   map[string]*entry
	midEdit   map[string]bool // keys whose last record was DIRTY with no resolving CLEAN/REMOVE
	order     *lruList        // MRU-ordered list of the same *entry values as entries
	truncated bool            // a final, unterminated line was found; triggers immediate compaction
}

// readJournal parses the header and every body line of the journal at dir/journal, building
// up the in-memory entry index per §4.2. A malformed header or body line returns
// ErrCorruptJournal; the caller (Open) reacts by wiping the directory and starting fresh.
func readJournal(dir string, appVersion, valueCount int) (*readJournalResult, error) {
	path := filepath.Join(dir, journalFileName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &readJournalResult{entries: map[string]*entry{}, midEdit: map[string]bool{}, order: &lruList{}}, nil
	} else if err != nil {
		return nil, fmt.Errorf("diskcache: failed to open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	unterminated := false // a final line with no newline is a torn append: skipped, then rebuilt away
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) > 0 && bytes.IndexByte(data, '\n') < 0 {
			unterminated = true
			return len(data), nil, nil
		}
		return bufio.ScanLines(data, atEOF)
	})
	if err := readHeader(scanner, appVersion, valueCount); err != nil {
		return nil, err
	}

	result := &readJournalResult{
		entries: make(map[string]*entry),
		midEdit: make(map[string]bool),
		order:   &lruList{},
	}
	for scanner.Scan() {
		line := scanner.Text()
		rec, err := parseRecord(line, valueCount)
		if err != nil {
			return nil, err
		}
		if err := applyRecord(result, rec, valueCount); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptJournal, err)
	}
	result.truncated = unterminated

	return result, nil
}

// applyRecord folds one parsed record into the readJournalResult being rebuilt by readJournal,
// mirroring the original DiskLruCache.processJournal line-by-line state transitions (DIRTY
// opens an edit, CLEAN publishes it, REMOVE deletes it, READ bumps MRU order). Each record also
// moves its key to the MRU end of result.order, so the final order matches journal history.
func applyRecord(result *readJournalResult, rec journalRecord, valueCount int) error {
	touch := func() *entry {
		e, ok := result.entries[rec.key]
		if !ok {
			e = newEntry(rec.key, valueCount)
			result.entries[rec.key] = e
			result.order.pushFront(e)
		} else {
			result.order.moveToFront(e)
		}
		return e
	}

	switch rec.kind {
	case recordDirty:
		touch()
		result.midEdit[rec.key] = true
	case recordClean:
		e := touch()
		delete(result.midEdit, rec.key)
		e.readable = true
		e.lengths = rec.lengths
	case recordRemove:
		if e, ok := result.entries[rec.key]; ok {
			result.order.remove(e)
		}
		delete(result.entries, rec.key)
		delete(result.midEdit, rec.key)
	case recordRead:
		touch()
	default:
		return fmt.Errorf("%w: unexpected record kind %q during replay", ErrCorruptJournal, rec.kind)
	}
	return nil
}

// processJournal finishes what readJournal started: entries left mid-edit (a DIRTY with no
// resolving CLEAN/REMOVE) are dropped and their files deleted, since their state cannot be
// trusted after a crash. Entries with no in-flight editor contribute their lengths to size and
// are linked into the cache's real LRU list in the same MRU-to-LRU order readJournal recorded.
func (c *DiskCache) processJournal(result *readJournalResult) error {
	// Walk tail-to-head (least- to most-recent) and capture the next node to visit before
	// relinking e into c.lru, since pushFront mutates e.prev/e.next in place.
	for e := result.order.tail; e != nil; {
		prev := e.prev
		key := e.key
		if !result.midEdit[key] {
			c.size += e.totalLength()
			c.entries[key] = e
			c.lru.pushFront(e)
		} else {
			// Mid-edit at crash time: the entry itself can't be trusted, so its clean
			// files always go. The dirty file's removal is gated on deleteDirtyFile
			// (§9 Open Question #1), same knob sweepDirtyFiles honors below.
			for i := range e.lengths {
				_ = os.Remove(cleanPath(c.dir, key, i))
				if c.deleteDirtyFile {
					_ = os.Remove(dirtyPath(c.dir, key, i))
				}
			}
		}
		e = prev
	}
	return nil
}

// sweepDirtyFiles deletes (or, if c.deleteDirtyFile is false, leaves in place) dangling dirty
// files that belong to entries that are not currently mid-edit, per the configurable knob in
// §6/§9 Open Question #1. This only runs once, right after journal replay.
func (c *DiskCache) sweepDirtyFiles() error {
	if !c.deleteDirtyFile {
		return nil
	}
	des, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("diskcache: failed to scan cache directory for dirty files: %w", err)
	}
	for _, de := range des {
		name := de.Name()
		if filepath.Ext(name) == ".tmp" {
			if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("diskcache: failed to remove dangling dirty file %s: %w", name, err)
			}
		}
	}
	return nil
}

// deleteStrayJournalTmp removes a leftover journal.tmp from a crash mid-compaction, per §4.2.
func deleteStrayJournalTmp(dir string) error {
	path := filepath.Join(dir, journalTmpFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("diskcache: failed to remove stray journal.tmp: %w", err)
	}
	return nil
}
