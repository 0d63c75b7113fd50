package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoolRoundTrip is invariant 6: put(k,v) then get(k) returns v by identity, and v was
// cleared before being handed back.
func TestPoolRoundTrip(t *testing.T) {
	p := NewLRUByteArrayPool(100)
	b1 := p.Get(10)
	for i := range b1 {
		b1[i] = 0xFF
	}
	p.Put(b1)

	b2 := p.Get(10)
	require.Len(t, b2, 10)
	assert.Same(t, &b1[0], &b2[0], "expected the reused buffer's backing array to be identical")
	for _, v := range b2 {
		assert.Equal(t, byte(0), v, "reused buffer should have been cleared")
	}
}

// TestPoolEviction is invariant 7: putting enough values to exceed max_size by 2x evicts the
// least-recently-inserted ones until current size is back under budget.
func TestPoolEviction(t *testing.T) {
	p := NewLRUByteArrayPool(100)
	for i := 0; i < 20; i++ {
		p.Put(make([]byte, 10))
	}
	assert.LessOrEqual(t, p.CurrentSize(), int64(100))
	assert.Equal(t, int64(10), p.EvictionCount())
}

// TestPoolReleaseRecyclesFuturePuts is scenario S5.
func TestPoolReleaseRecyclesFuturePuts(t *testing.T) {
	p := NewLRUByteArrayPool(100)
	b1 := p.Get(10)
	p.Put(b1)
	b2 := p.Get(10)
	assert.Same(t, &b1[0], &b2[0])

	p.Release()
	p.Put(b2)
	b3 := p.Get(10)
	require.Len(t, b3, 10)
	assert.NotSame(t, &b2[0], &b3[0], "a value put after release must not be handed back")
}

// TestPoolLRUFullPressure is scenario S6: filling the pool past budget leaves the
// most-recently-put values retrievable and requires fresh allocation beyond that.
func TestPoolLRUFullPressure(t *testing.T) {
	p := NewLRUByteArrayPool(100)
	var puts [][]byte
	for i := 0; i < 20; i++ {
		buf := make([]byte, 10)
		puts = append(puts, buf)
		p.Put(buf)
	}

	survivors := make(map[*byte]bool)
	for _, buf := range puts[10:] {
		survivors[&buf[0]] = true
	}

	hits := 0
	for i := 0; i < 10; i++ {
		got := p.GetDirty(10)
		require.Len(t, got, 10)
		if survivors[&got[0]] {
			hits++
		}
	}
	assert.Equal(t, 10, hits, "all 10 surviving buffers should have been retrieved")

	for i := 0; i < 10; i++ {
		got := p.GetDirty(10)
		require.Len(t, got, 10)
		assert.False(t, survivors[&got[0]], "request past the surviving set must allocate fresh")
	}
}

func TestGroupedLinkedMapPutGet(t *testing.T) {
	m := NewGroupedLinkedMap[int, string]()
	m.Put(10, "a")
	m.Put(10, "b")
	m.Put(20, "c")

	v, ok := m.Get(10)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = m.Get(10)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = m.Get(10)
	assert.False(t, ok)

	v, ok = m.Get(20)
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestGroupedLinkedMapRemoveLast(t *testing.T) {
	m := NewGroupedLinkedMap[int, string]()
	m.Put(10, "a")
	m.Put(20, "b")
	m.Put(10, "c")

	key, v, ok := m.RemoveLast()
	require.True(t, ok)
	assert.Equal(t, 20, key)
	assert.Equal(t, "b", v)

	key, v, ok = m.RemoveLast()
	require.True(t, ok)
	assert.Equal(t, 10, key)
	assert.Equal(t, "a", v)

	assert.Equal(t, 1, m.Len())
}

func TestLRUSimpleKeyPoolEvictsByCount(t *testing.T) {
	calls := 0
	p := NewLRUSimpleKeyPool(func(size int) int {
		calls++
		return size
	})
	for i := 0; i < defaultKeyPoolCapacity+5; i++ {
		p.Put(i, i)
	}
	assert.Len(t, p.order, defaultKeyPoolCapacity)

	// The oldest size classes should have been evicted; requesting one reallocates.
	before := calls
	_ = p.Get(0)
	assert.Greater(t, calls, before, "expected a fresh allocation for an evicted size class")
}
