package pool

// intArray is the Poolable wrapper around []int32 handed out by LRUIntArrayPool.
type intArray struct {
	buf []int32
}

func (a *intArray) Clear() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

func (a *intArray) Size() int64 { return int64(len(a.buf)) * 4 }

func (a *intArray) Recycle() { a.buf = nil }

// LRUIntArrayPool is a trivial specialization of Pool for []int32 buffers.
type LRUIntArrayPool struct {
	inner *Pool[*intArray]
}

// NewLRUIntArrayPool constructs an int-array pool with the given byte budget.
func NewLRUIntArrayPool(maxSize int64) *LRUIntArrayPool {
	return &LRUIntArrayPool{inner: New[*intArray]("int_array", maxSize, func(size int) *intArray {
		return &intArray{buf: make([]int32, size)}
	})}
}

// Get returns an []int32 of length size, reused from the pool when possible.
func (p *LRUIntArrayPool) Get(size int) []int32 { return p.inner.Get(size).buf }

// GetDirty is Get without zeroing a reused buffer first.
func (p *LRUIntArrayPool) GetDirty(size int) []int32 { return p.inner.GetDirty(size).buf }

// Put returns buf to the pool.
func (p *LRUIntArrayPool) Put(buf []int32) { p.inner.Put(&intArray{buf: buf}) }

// ClearMemory evicts every buffer currently held by the pool.
func (p *LRUIntArrayPool) ClearMemory() { p.inner.ClearMemory() }

// Release one-shot-latches the pool into recycle-on-put mode.
func (p *LRUIntArrayPool) Release() { p.inner.Release() }

func (p *LRUIntArrayPool) HitCount() int64      { return p.inner.HitCount() }
func (p *LRUIntArrayPool) MissCount() int64     { return p.inner.MissCount() }
func (p *LRUIntArrayPool) EvictionCount() int64 { return p.inner.EvictionCount() }
func (p *LRUIntArrayPool) CurrentSize() int64   { return p.inner.CurrentSize() }
