package diskcache

import (
	"fmt"
	"os"
)

// Editor is the in-flight write handle returned by DiskCache.Edit and Snapshot.Edit. At most
// one Editor exists per key at a time (spec.md §3 invariant 3). Every Editor must eventually
// be resolved with Commit or Abort; an Editor that is merely dropped leaves its key locked out
// of future edits until the process restarts and replay discards the dangling DIRTY record.
type Editor struct {
	cache *DiskCache
	key   string
	entry *entry

	written []bool // non-nil only for a newly created entry; tracks which indices got a Set
	done    bool
}

func (ed *Editor) checkOpen() error {
	if ed.done {
		return ErrNotAnEditor
	}
	return nil
}

// File returns the path of the dirty (uncommitted) file for value index i and marks that index
// as written; it does not create the file. Callers create and write the file at the returned
// path themselves; the cache takes ownership of the file on Commit.
func (ed *Editor) File(i int) (string, error) {
	if err := ed.checkOpen(); err != nil {
		return "", err
	}
	if i < 0 || i >= ed.cache.valueCount {
		return "", fmt.Errorf("%w: value index %d out of range", ErrIllegalState, i)
	}
	if ed.written != nil {
		ed.written[i] = true
	}
	return dirtyPath(ed.cache.dir, ed.key, i), nil
}

// Set writes content to the dirty file for value index i in one call, for callers that already
// have the full value in memory.
func (ed *Editor) Set(i int, content []byte) error {
	path, err := ed.File(i)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("diskcache: failed to write value index %d: %w", i, err)
	}
	return nil
}

// SetString is Set for callers that already have the value as a string.
func (ed *Editor) SetString(i int, content string) error {
	return ed.Set(i, []byte(content))
}

// String reads back the dirty content written to value index i so far during this edit, or
// the empty string if nothing has been written to that index yet.
func (ed *Editor) String(i int) (string, error) {
	if err := ed.checkOpen(); err != nil {
		return "", err
	}
	if i < 0 || i >= ed.cache.valueCount {
		return "", fmt.Errorf("%w: value index %d out of range", ErrIllegalState, i)
	}
	b, err := os.ReadFile(dirtyPath(ed.cache.dir, ed.key, i))
	if os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("diskcache: failed to read dirty file: %w", err)
	}
	return string(b), nil
}

// Peek returns the last committed clean bytes for value index i, or (nil, false, nil) if the
// entry has no prior committed value at that index (always true for a newly created entry).
// This lets an editor of an existing entry read-before-write without going through a Snapshot.
func (ed *Editor) Peek(i int) ([]byte, bool, error) {
	if err := ed.checkOpen(); err != nil {
		return nil, false, err
	}
	if i < 0 || i >= ed.cache.valueCount {
		return nil, false, fmt.Errorf("%w: value index %d out of range", ErrIllegalState, i)
	}
	b, err := os.ReadFile(cleanPath(ed.cache.dir, ed.key, i))
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("diskcache: failed to read clean file: %w", err)
	}
	return b, true, nil
}

// Commit publishes every dirty file written during this edit as the new clean state, bumps the
// entry's sequence number, and appends the resolving CLEAN journal record.
func (ed *Editor) Commit() error {
	if err := ed.checkOpen(); err != nil {
		return err
	}
	ed.cache.mu.Lock()
	defer ed.cache.mu.Unlock()
	ed.done = true
	return ed.cache.completeEdit(ed, true)
}

// Abort discards every dirty file written during this edit, leaving the entry's prior
// committed state (if any) untouched.
func (ed *Editor) Abort() error {
	if err := ed.checkOpen(); err != nil {
		return err
	}
	ed.cache.mu.Lock()
	defer ed.cache.mu.Unlock()
	ed.done = true
	return ed.cache.completeEdit(ed, false)
}

// abortLocked is Abort's body for callers that already hold cache.mu (Close's sweep of
// in-flight editors at shutdown).
func (ed *Editor) abortLocked() error {
	if ed.done {
		return nil
	}
	ed.done = true
	return ed.cache.completeEdit(ed, false)
}

// AbortUnlessCommitted is the defer-friendly cleanup call: a no-op if Commit already ran,
// otherwise an Abort. Mirrors the canonical disk LRU cache's idiom for edits guarded by defer.
func (ed *Editor) AbortUnlessCommitted() {
	if ed.done {
		return
	}
	_ = ed.Abort()
}
