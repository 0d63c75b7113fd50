// Package pool implements the in-memory, size-indexed object pool: an exact-match LRU keyed by
// shape (size/type), with byte-budgeted eviction and a handful of specialized array-pool
// façades. See SPEC_FULL.md §4.2 for the full design.
package pool

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// IKey is implemented by pool keys. Equality is by shape: two keys that should retrieve
// interchangeable values must compare equal with ==, which is why IKey embeds comparable.
type IKey interface {
	comparable
}

// bucket holds every pooled value currently stored under one key, plus its links in the
// GroupedLinkedMap's LRU ordering.
type bucket[K comparable, V any] struct {
	key        K
	values     []V
	prev, next *bucket[K, V]
}

// GroupedLinkedMap is a doubly linked list of per-key buckets, generalizing the teacher's
// pkg/cache/linked_list.go from a flat list of values to a list of (key, []value) groups: the
// pool needs to group multiple interchangeable values under one exact-size key rather than
// storing a single value per node. A hash index keyed by a dispatched hash of K (mirroring
// pkg/cache/shard.go's per-type hash-function switch) resolves a key to its bucket in O(1)
// without requiring K's underlying type to be hashable by anything other than ==.
type GroupedLinkedMap[K comparable, V any] struct {
	head, tail *bucket[K, V]
	index      map[uint64][]*bucket[K, V]
	size       int
	hash       func(K) uint64
}

// NewGroupedLinkedMap constructs an empty GroupedLinkedMap, resolving K's hash dispatch once up
// front exactly as ShardedCache's constructor resolves its key hash function.
func NewGroupedLinkedMap[K comparable, V any]() *GroupedLinkedMap[K, V] {
	return &GroupedLinkedMap[K, V]{index: make(map[uint64][]*bucket[K, V]), hash: hashDispatch[K]()}
}

// hashDispatch returns a hash function for K, specialized by K's concrete dynamic type the same
// way pkg/cache/shard.go's NewShardedCache picks a hash function once per constructed cache.
func hashDispatch[K comparable]() func(K) uint64 {
	switch any(*new(K)).(type) {
	case string:
		return func(k K) uint64 { return xxhash.Sum64String(any(k).(string)) }
	case int:
		return func(k K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(k).(int)))
			return xxhash.Sum64(b[:])
		}
	case int32:
		return func(k K) uint64 {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(any(k).(int32)))
			return xxhash.Sum64(b[:])
		}
	case int64:
		return func(k K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(k).(int64)))
			return xxhash.Sum64(b[:])
		}
	case uint32:
		return func(k K) uint64 {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], any(k).(uint32))
			return xxhash.Sum64(b[:])
		}
	case uint64:
		return func(k K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], any(k).(uint64))
			return xxhash.Sum64(b[:])
		}
	default:
		return func(k K) uint64 {
			// Composite key shapes (e.g. a {width,height,format} struct) fall back to a
			// formatted representation, as pkg/cache/shard.go does for arbitrary structs.
			return xxhash.Sum64String(fmt.Sprintf("%#v", k))
		}
	}
}

func (m *GroupedLinkedMap[K, V]) linkAtTail(b *bucket[K, V]) {
	b.prev = m.tail
	if m.tail != nil {
		m.tail.next = b
	} else {
		m.head = b
	}
	m.tail = b
}

func (m *GroupedLinkedMap[K, V]) unlink(b *bucket[K, V]) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		m.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		m.tail = b.prev
	}
	b.prev, b.next = nil, nil
}

func (m *GroupedLinkedMap[K, V]) moveToHead(b *bucket[K, V]) {
	if m.head == b {
		return
	}
	m.unlink(b)
	b.next = m.head
	if m.head != nil {
		m.head.prev = b
	} else {
		m.tail = b
	}
	m.head = b
}

func (m *GroupedLinkedMap[K, V]) find(key K) *bucket[K, V] {
	h := m.hash(key)
	for _, b := range m.index[h] {
		if b.key == key {
			return b
		}
	}
	return nil
}

func (m *GroupedLinkedMap[K, V]) dropIfEmpty(b *bucket[K, V]) {
	if len(b.values) > 0 {
		return
	}
	h := m.hash(b.key)
	bs := m.index[h]
	for i, candidate := range bs {
		if candidate == b {
			bs = append(bs[:i], bs[i+1:]...)
			break
		}
	}
	if len(bs) == 0 {
		delete(m.index, h)
	} else {
		m.index[h] = bs
	}
	m.unlink(b)
}

// Put appends value to the tail-side bucket for key, creating the bucket at the tail if it
// doesn't already exist.
func (m *GroupedLinkedMap[K, V]) Put(key K, value V) {
	b := m.find(key)
	if b == nil {
		b = &bucket[K, V]{key: key}
		h := m.hash(key)
		m.index[h] = append(m.index[h], b)
		m.linkAtTail(b)
	}
	b.values = append(b.values, value)
	m.size++
}

// Get moves key's bucket to the head and pops its least-recently-inserted value, or returns
// (zero, false) if no bucket for key holds any value. Popping oldest-first within a bucket
// keeps values retrieved after an eviction pass distinct from values an eviction would have
// targeted next.
func (m *GroupedLinkedMap[K, V]) Get(key K) (V, bool) {
	b := m.find(key)
	if b == nil || len(b.values) == 0 {
		var zero V
		return zero, false
	}
	v := b.values[0]
	b.values = b.values[1:]
	m.size--
	m.moveToHead(b)
	m.dropIfEmpty(b)
	return v, true
}

// RemoveLast walks from the tail, popping the least-recently-inserted value out of the first
// nonempty bucket it finds. Empty buckets are unlinked lazily as they're encountered.
func (m *GroupedLinkedMap[K, V]) RemoveLast() (K, V, bool) {
	for b := m.tail; b != nil; {
		prev := b.prev
		if len(b.values) > 0 {
			v := b.values[0]
			b.values = b.values[1:]
			m.size--
			key := b.key
			m.dropIfEmpty(b)
			return key, v, true
		}
		m.dropIfEmpty(b)
		b = prev
	}
	var zeroK K
	var zeroV V
	return zeroK, zeroV, false
}

// Len returns the total number of values currently held across all buckets.
func (m *GroupedLinkedMap[K, V]) Len() int {
	return m.size
}
