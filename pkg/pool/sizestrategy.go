package pool

import "slices"

// Poolable is implemented by values a Pool can hand out and recycle.
type Poolable interface {
	// Clear zeroes or resets the value's content so a reused instance looks fresh to the next
	// caller that receives it from Get.
	Clear()
	// Size reports the value's footprint in bytes, used for the pool's eviction accounting.
	Size() int64
	// Recycle releases any resources the value holds. Called instead of pooling once a pool
	// has been released.
	Recycle()
}

// sizeCount is one row of the sorted-size ledger: how many values of a given size are
// currently held across all keys of that size.
type sizeCount struct {
	size  int
	count int
}

// decreasingSizeLedger tracks, per size, how many pooled values of that size currently exist,
// kept sorted largest-size-first. Nothing in this package ever reads it for best-fit lookup
// (spec.md §9 Open Question #2 resolves this as write-path-consistent only, since the canonical
// source never performed best-fit either) but every put/get/removeLast keeps it correct so a
// future best-fit strategy could be layered on without touching the rest of the pool.
type decreasingSizeLedger struct {
	entries []sizeCount
}

// indexOf returns the position of size in the descending-sorted entries slice, or the
// insertion point that preserves descending order if absent.
func (l *decreasingSizeLedger) indexOf(size int) (idx int, found bool) {
	lo, hi := 0, len(l.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case l.entries[mid].size == size:
			return mid, true
		case l.entries[mid].size > size:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

func (l *decreasingSizeLedger) increment(size int) {
	idx, found := l.indexOf(size)
	if found {
		l.entries[idx].count++
		return
	}
	l.entries = slices.Insert(l.entries, idx, sizeCount{size: size, count: 1})
}

// decrement removes one occurrence of size from the ledger, dropping the row entirely once its
// count reaches zero. Decrementing a size with no entry is a programming error.
func (l *decreasingSizeLedger) decrement(size int) {
	idx, found := l.indexOf(size)
	if !found {
		panic("pool: decrementing size ledger for a size with no entries")
	}
	l.entries[idx].count--
	if l.entries[idx].count == 0 {
		l.entries = slices.Delete(l.entries, idx, idx+1)
	}
}

// SizeStrategy is the pool's exact-match retrieval strategy: a GroupedLinkedMap keyed by
// integer size class, plus the sorted-size ledger described above.
type SizeStrategy[V Poolable] struct {
	groups *GroupedLinkedMap[int, V]
	ledger decreasingSizeLedger
}

func newSizeStrategy[V Poolable]() *SizeStrategy[V] {
	return &SizeStrategy[V]{groups: NewGroupedLinkedMap[int, V]()}
}

func (s *SizeStrategy[V]) put(size int, value V) {
	s.groups.Put(size, value)
	s.ledger.increment(size)
}

func (s *SizeStrategy[V]) get(size int) (V, bool) {
	v, ok := s.groups.Get(size)
	if ok {
		s.ledger.decrement(size)
	}
	return v, ok
}

// removeLast evicts one value from the tail-most nonempty size bucket (buckets are created at
// the tail and moved to the head by get), oldest value first within that bucket, returning the
// size it was stored under so the caller can adjust byte accounting.
func (s *SizeStrategy[V]) removeLast() (int, V, bool) {
	size, v, ok := s.groups.RemoveLast()
	if ok {
		s.ledger.decrement(size)
	}
	return size, v, ok
}

func (s *SizeStrategy[V]) len() int {
	return s.groups.Len()
}
