// Package diskcache implements a journaled, size-bounded, on-disk LRU cache providing atomic
// multi-file entries with crash recovery. See SPEC_FULL.md §4.1–§4.5 for the full design.
package diskcache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/corewell/cachekit/pkg/utils"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,120}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// DiskCache is a size-bounded, journaled LRU cache of multi-file entries on local disk. A
// single process-wide mutex guards every mutation; I/O happens inside the lock (spec.md §5).
type DiskCache struct {
	mu sync.Mutex

	dir        string
	appVersion int
	valueCount int
	maxSize    int64

	deleteDirtyFile bool
	appendMode      bool

	entries map[string]*entry
	lru     lruList
	size    int64

	redundantOpCount   int
	nextSequenceNumber int64

	journal *journalWriter
	closed  bool

	executor     Executor
	ownsExecutor bool
	trimPending  bool
}

// Open opens (creating if necessary) a disk cache rooted at dir. valueCount and maxSize must
// be positive. appVersion is stamped into the journal header; a mismatch against a previously
// written journal is treated as corruption and triggers a fresh start.
func Open(dir string, appVersion, valueCount int, maxSize int64, opts ...Option) (*DiskCache, error) {
	if valueCount <= 0 {
		return nil, fmt.Errorf("diskcache: valueCount must be positive, got %d", valueCount)
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("diskcache: maxSize must be positive, got %d", maxSize)
	}

	c := &DiskCache{
		dir:             dir,
		appVersion:      appVersion,
		valueCount:      valueCount,
		maxSize:         maxSize,
		deleteDirtyFile: true,
		entries:         make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = newGoroutineExecutor()
		c.ownsExecutor = true
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: failed to create cache directory: %w", err)
	}
	if err := promoteBackupIfNeeded(dir); err != nil {
		return nil, err
	}

	result, err := readJournal(dir, appVersion, valueCount)
	if err != nil {
		corruptJournalTotal.Inc()
		if err := wipeDirectory(dir); err != nil {
			return nil, err
		}
		result = &readJournalResult{entries: map[string]*entry{}, midEdit: map[string]bool{}, order: &lruList{}}
	}

	if err := c.processJournal(result); err != nil {
		return nil, err
	}
	if err := deleteStrayJournalTmp(dir); err != nil {
		return nil, err
	}
	if err := c.sweepDirtyFiles(); err != nil {
		return nil, err
	}

	if result.truncated {
		// rebuildJournalLocked writes a fresh, complete journal and leaves c.journal open
		// against it, so there is nothing further to open below.
		if err := c.rebuildJournalLocked(); err != nil {
			return nil, err
		}
		return c, nil
	}

	journalPath := filepath.Join(dir, journalFileName)
	jw, err := openJournalWriter(journalPath)
	if err != nil {
		return nil, err
	}
	// A fresh journal (no prior file, or one just wiped) needs its header written.
	if info, statErr := os.Stat(journalPath); statErr == nil && info.Size() == 0 {
		if err := writeHeader(jw.writer, appVersion, valueCount); err != nil {
			return nil, err
		}
		if err := jw.flush(); err != nil {
			return nil, err
		}
	}
	c.journal = jw

	return c, nil
}

// Get returns a Snapshot of key's currently published bytes, or (nil, nil) if the key is
// absent, not yet readable, or one of its clean files can no longer be opened.
func (c *DiskCache) Get(key string) (*Snapshot, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	e, ok := c.entries[key]
	if !ok || !e.readable {
		return nil, nil
	}

	snap, err := newSnapshot(c, e)
	if err != nil {
		// A clean file is missing or unreadable (e.g. removed from the directory behind the
		// cache's back) — treat the read as a miss rather than mutate state from here.
		return nil, nil
	}

	if err := c.journal.append(journalRecord{kind: recordRead, key: key}); err != nil {
		return nil, err
	}
	// READ is an LRU hint only; it is not flushed (spec.md §5). It is still a redundant op —
	// the Glossary's own example of one — so it still counts toward compaction pressure.
	c.redundantOpCount++
	c.lru.moveToFront(e)

	c.scheduleCleanupLocked()

	return snap, nil
}

// Edit opens an editor for key, returning (nil, nil) if another editor already holds the key.
func (c *DiskCache) Edit(key string) (*Editor, error) {
	return c.editInternal(key, 0, false)
}

// editInternal implements both DiskCache.Edit and Snapshot.Edit's stale-check variant.
// checkSequence, when true, requires the entry's current sequence number to equal
// expectedSequenceNumber, returning (nil, nil) on mismatch per spec.md §4.4.
func (c *DiskCache) editInternal(key string, expectedSequenceNumber int64, checkSequence bool) (*Editor, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	e, exists := c.entries[key]
	if checkSequence {
		if !exists || e.sequenceNumber != expectedSequenceNumber {
			return nil, nil
		}
	}
	if exists && e.editor != nil {
		return nil, nil // Single editor per key (spec.md §3 invariant 3).
	}

	isNew := !exists || !e.readable
	if !exists {
		e = newEntry(key, c.valueCount)
		c.entries[key] = e
		c.lru.pushFront(e)
	}

	var written []bool
	if isNew {
		written = make([]bool, c.valueCount)
	}
	ed := &Editor{cache: c, key: key, entry: e, written: written}
	e.editor = ed

	if err := c.journal.append(journalRecord{kind: recordDirty, key: key}); err != nil {
		return nil, err
	}
	if err := c.journal.flush(); err != nil { // Flushed before any dirty file write (spec.md §5).
		return nil, err
	}

	if !isNew && c.appendMode {
		for i := 0; i < c.valueCount; i++ {
			if err := seedDirtyFromClean(c.dir, key, i); err != nil {
				return nil, err
			}
		}
	}

	return ed, nil
}

func seedDirtyFromClean(dir, key string, index int) error {
	clean := cleanPath(dir, key, index)
	dirty := dirtyPath(dir, key, index)
	src, err := os.Open(clean)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("diskcache: failed to open clean file for append seed: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(dirty, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("diskcache: failed to create dirty file for append seed: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := dst.ReadFrom(src); err != nil {
		return fmt.Errorf("diskcache: failed to seed dirty file from clean file: %w", err)
	}
	return nil
}

// completeEdit implements the commit/abort half of the §4.2 state machine. Called with the
// lock held, from Editor.Commit/Abort.
func (c *DiskCache) completeEdit(ed *Editor, success bool) error {
	e := ed.entry
	isNew := ed.written != nil

	// invalidErr, once set, demotes this call to the abort path below: a commit that fails
	// §4.2's new-entry validation must still run abort()'s cleanup (drop the entry, remove its
	// dirty files, append REMOVE) rather than leaving e.editor set forever, per the state
	// machine table. The validation error itself is still returned to the caller.
	var invalidErr error
	if success && isNew {
		for i := 0; i < c.valueCount; i++ {
			if !ed.written[i] {
				utils.RaiseInvariant("diskcache", "missing_value", "committed entry has no value for index", "key", ed.key, "index", i)
				invalidErr = fmt.Errorf("%w: newly created entry didn't create value for index %d", ErrIllegalState, i)
				break
			}
			if _, err := os.Stat(dirtyPath(c.dir, ed.key, i)); err != nil {
				utils.RaiseInvariant("diskcache", "missing_value", "committed entry has no dirty file for index", "key", ed.key, "index", i)
				invalidErr = fmt.Errorf("%w: newly created entry didn't create value for index %d", ErrIllegalState, i)
				break
			}
		}
		if invalidErr != nil {
			success = false
		}
	}

	if success {
		for i := 0; i < c.valueCount; i++ {
			dirty := dirtyPath(c.dir, ed.key, i)
			if _, err := os.Stat(dirty); err != nil {
				continue // Untouched index on an existing entry: keep its prior clean file.
			}
			clean := cleanPath(c.dir, ed.key, i)
			oldLen := e.lengths[i]
			info, err := os.Stat(dirty)
			if err != nil {
				return fmt.Errorf("diskcache: failed to stat dirty file: %w", err)
			}
			if err := os.Rename(dirty, clean); err != nil {
				return fmt.Errorf("diskcache: failed to publish value index %d: %w", i, err)
			}
			e.lengths[i] = info.Size()
			c.size += info.Size() - oldLen
		}

		e.readable = true
		e.sequenceNumber = c.nextSequenceNumber
		c.nextSequenceNumber++
		if err := c.journal.append(journalRecord{kind: recordClean, key: ed.key, lengths: e.lengths}); err != nil {
			return err
		}
		c.redundantOpCount++
		commitsTotal.Inc()
	} else {
		for i := 0; i < c.valueCount; i++ {
			_ = os.Remove(dirtyPath(c.dir, ed.key, i))
		}
		if isNew {
			delete(c.entries, ed.key)
			c.lru.remove(e)
			if err := c.journal.append(journalRecord{kind: recordRemove, key: ed.key}); err != nil {
				return err
			}
		} else if e.readable {
			if err := c.journal.append(journalRecord{kind: recordClean, key: ed.key, lengths: e.lengths}); err != nil {
				return err
			}
		}
		// A DIRTY later matched by a resolving CLEAN/REMOVE is a redundant op by the
		// Glossary's own definition, same as the commit branch above.
		c.redundantOpCount++
		abortsTotal.Inc()
	}

	e.editor = nil
	if success {
		c.lru.moveToFront(e)
	}
	if err := c.journal.flush(); err != nil {
		return err
	}

	c.scheduleCleanupLocked()
	return invalidErr
}

// Remove deletes key from the cache, returning false if the key was absent or currently being
// edited (removal is rejected while an editor is in flight, per spec.md §4.2).
func (c *DiskCache) Remove(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

func (c *DiskCache) removeLocked(key string) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}

	e, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if e.editor != nil {
		return false, nil
	}

	for i := 0; i < c.valueCount; i++ {
		path := cleanPath(c.dir, key, i)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("diskcache: failed to remove clean file: %w", err)
		}
	}
	c.size -= e.totalLength()
	delete(c.entries, key)
	c.lru.remove(e)

	if err := c.journal.append(journalRecord{kind: recordRemove, key: key}); err != nil {
		return false, err
	}
	if err := c.journal.flush(); err != nil {
		return false, err
	}
	c.redundantOpCount++
	evictionsTotal.Inc()
	c.scheduleCleanupLocked()

	return true, nil
}

// Size returns the current total byte length of all clean files across all entries.
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSize returns the configured byte budget.
func (c *DiskCache) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// SetMaxSize updates the byte budget and, if it was lowered, schedules a trim pass.
func (c *DiskCache) SetMaxSize(maxSize int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.scheduleCleanupLocked()
}

// Stat returns a point-in-time snapshot of cache bookkeeping, useful for the cachectl CLI and
// for tests; it is not part of the canonical source's interface but is a natural observability
// addition (SPEC_FULL.md §4.1).
type Stat struct {
	Size             int64
	MaxSize          int64
	EntryCount       int
	RedundantOpCount int
}

func (c *DiskCache) Stat() Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stat{Size: c.size, MaxSize: c.maxSize, EntryCount: len(c.entries), RedundantOpCount: c.redundantOpCount}
}

// Compact forces an immediate journal rebuild regardless of journalRebuildRequiredLocked's
// redundant-op threshold, for callers (the cachectl compact subcommand) that want to shrink the
// journal on demand rather than wait for it to accumulate enough history on its own.
func (c *DiskCache) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.rebuildJournalLocked()
}

// Flush forces the journal to disk and blocks until any pending trim/compaction completes.
func (c *DiskCache) Flush() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := c.journal.flush()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	// Run the cleanup pass synchronously so callers observe a quiesced cache on return, as
	// S3/S5 in spec.md §8 require ("after flush are exactly {A, D}").
	c.runCleanup()
	return nil
}

// Close aborts all in-flight editors, runs a final trim, and releases the journal writer.
// Every public operation fails with ErrClosed after Close returns.
func (c *DiskCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	for _, e := range c.entries {
		if ed := e.editor; ed != nil {
			_ = ed.abortLocked()
		}
	}

	c.trimToSizeLocked()
	if c.journalRebuildRequiredLocked() {
		_ = c.rebuildJournalLocked()
	}

	err := c.journal.close()
	c.closed = true
	c.mu.Unlock()

	if c.ownsExecutor {
		c.executor.(*goroutineExecutor).stop()
	}
	return err
}

// Delete closes the cache (if open) and removes its entire directory from disk.
func (c *DiskCache) Delete() error {
	if err := c.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("diskcache: failed to delete cache directory: %w", err)
	}
	return nil
}

// scheduleCleanupLocked submits a trim/compaction pass to the executor if size or redundant-op
// pressure warrants it. Must be called with c.mu held; coalesces multiple pending submissions.
func (c *DiskCache) scheduleCleanupLocked() {
	if c.trimPending {
		return
	}
	if c.size <= c.maxSize && !c.journalRebuildRequiredLocked() {
		return
	}
	c.trimPending = true
	c.executor.Submit(c.runCleanup)
}

// runCleanup is the background task body described in spec.md §4.5: clear the pending flag,
// trim to size, then compact the journal if warranted.
func (c *DiskCache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimPending = false
	if c.closed {
		return
	}
	c.trimToSizeLocked()
	if c.journalRebuildRequiredLocked() {
		_ = c.rebuildJournalLocked()
		c.redundantOpCount = 0
		journalRebuildsTotal.Inc()
	}
}
