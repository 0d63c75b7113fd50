package pool

// longArray is the Poolable wrapper around []int64 handed out by LRULongArrayPool.
type longArray struct {
	buf []int64
}

func (a *longArray) Clear() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

func (a *longArray) Size() int64 { return int64(len(a.buf)) * 8 }

func (a *longArray) Recycle() { a.buf = nil }

// LRULongArrayPool is a trivial specialization of Pool for []int64 buffers.
type LRULongArrayPool struct {
	inner *Pool[*longArray]
}

// NewLRULongArrayPool constructs a long-array pool with the given byte budget.
func NewLRULongArrayPool(maxSize int64) *LRULongArrayPool {
	return &LRULongArrayPool{inner: New[*longArray]("long_array", maxSize, func(size int) *longArray {
		return &longArray{buf: make([]int64, size)}
	})}
}

// Get returns an []int64 of length size, reused from the pool when possible.
func (p *LRULongArrayPool) Get(size int) []int64 { return p.inner.Get(size).buf }

// GetDirty is Get without zeroing a reused buffer first.
func (p *LRULongArrayPool) GetDirty(size int) []int64 { return p.inner.GetDirty(size).buf }

// Put returns buf to the pool.
func (p *LRULongArrayPool) Put(buf []int64) { p.inner.Put(&longArray{buf: buf}) }

// ClearMemory evicts every buffer currently held by the pool.
func (p *LRULongArrayPool) ClearMemory() { p.inner.ClearMemory() }

// Release one-shot-latches the pool into recycle-on-put mode.
func (p *LRULongArrayPool) Release() { p.inner.Release() }

func (p *LRULongArrayPool) HitCount() int64      { return p.inner.HitCount() }
func (p *LRULongArrayPool) MissCount() int64     { return p.inner.MissCount() }
func (p *LRULongArrayPool) EvictionCount() int64 { return p.inner.EvictionCount() }
func (p *LRULongArrayPool) CurrentSize() int64   { return p.inner.CurrentSize() }
