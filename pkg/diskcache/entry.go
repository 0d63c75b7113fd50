package diskcache

import (
	"fmt"
	"path/filepath"
)

// entry is the in-memory state for one key, threaded directly into the cache's intrusive
// doubly-linked LRU list (spec.md §9 "Design Notes": an explicit list through the entry
// structs rather than a generic container, so that touching an entry on read/commit is O(1)
// without a second map lookup).
type entry struct {
	key     string
	lengths []int64 // one length per value index; 0 until a clean file has ever been published

	readable       bool
	sequenceNumber int64
	editor         *Editor // non-nil while an edit is in flight for this key

	prev, next *entry // LRU list links; nil when not linked (i.e. just removed)
}

func newEntry(key string, valueCount int) *entry {
	return &entry{key: key, lengths: make([]int64, valueCount)}
}

func (e *entry) totalLength() int64 {
	var total int64
	for _, l := range e.lengths {
		total += l
	}
	return total
}

func cleanPath(dir, key string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d", key, index))
}

func dirtyPath(dir, key string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d.tmp", key, index))
}

// lruList is the intrusive doubly-linked list described above. head is the most-recently-used
// end; tail is the least-recently-used end, i.e. the next eviction candidate.
type lruList struct {
	head, tail *entry
}

// pushFront links e at the MRU end. e must not already be linked.
func (l *lruList) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
}

// remove unlinks e from wherever it currently sits.
func (l *lruList) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// moveToFront re-links e at the MRU end in O(1), used by Get/commit touches.
func (l *lruList) moveToFront(e *entry) {
	if l.head == e {
		return
	}
	l.remove(e)
	l.pushFront(e)
}
