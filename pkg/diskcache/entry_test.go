package diskcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUListOrdering(t *testing.T) {
	l := &lruList{}
	a, b, c := newEntry("a", 1), newEntry("b", 1), newEntry("c", 1)
	l.pushFront(a)
	l.pushFront(b)
	l.pushFront(c)
	assert.Equal(t, []string{"c", "b", "a"}, keysFromHead(l))

	l.moveToFront(a)
	assert.Equal(t, []string{"a", "c", "b"}, keysFromHead(l))

	l.remove(c)
	assert.Equal(t, []string{"a", "b"}, keysFromHead(l))
	assert.Equal(t, "b", l.tail.key)
}

func keysFromHead(l *lruList) []string {
	var keys []string
	for e := l.head; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

func TestEntryTotalLength(t *testing.T) {
	e := newEntry("k", 3)
	e.lengths = []int64{1, 2, 3}
	assert.Equal(t, int64(6), e.totalLength())
}
