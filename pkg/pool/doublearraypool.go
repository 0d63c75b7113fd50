package pool

// doubleArray is the Poolable wrapper around []float64 handed out by LRUDoubleArrayPool.
type doubleArray struct {
	buf []float64
}

func (a *doubleArray) Clear() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

func (a *doubleArray) Size() int64 { return int64(len(a.buf)) * 8 }

func (a *doubleArray) Recycle() { a.buf = nil }

// LRUDoubleArrayPool is a trivial specialization of Pool for []float64 buffers.
type LRUDoubleArrayPool struct {
	inner *Pool[*doubleArray]
}

// NewLRUDoubleArrayPool constructs a double-array pool with the given byte budget.
func NewLRUDoubleArrayPool(maxSize int64) *LRUDoubleArrayPool {
	return &LRUDoubleArrayPool{inner: New[*doubleArray]("double_array", maxSize, func(size int) *doubleArray {
		return &doubleArray{buf: make([]float64, size)}
	})}
}

// Get returns a []float64 of length size, reused from the pool when possible.
func (p *LRUDoubleArrayPool) Get(size int) []float64 { return p.inner.Get(size).buf }

// GetDirty is Get without zeroing a reused buffer first.
func (p *LRUDoubleArrayPool) GetDirty(size int) []float64 { return p.inner.GetDirty(size).buf }

// Put returns buf to the pool.
func (p *LRUDoubleArrayPool) Put(buf []float64) { p.inner.Put(&doubleArray{buf: buf}) }

// ClearMemory evicts every buffer currently held by the pool.
func (p *LRUDoubleArrayPool) ClearMemory() { p.inner.ClearMemory() }

// Release one-shot-latches the pool into recycle-on-put mode.
func (p *LRUDoubleArrayPool) Release() { p.inner.Release() }

func (p *LRUDoubleArrayPool) HitCount() int64      { return p.inner.HitCount() }
func (p *LRUDoubleArrayPool) MissCount() int64     { return p.inner.MissCount() }
func (p *LRUDoubleArrayPool) EvictionCount() int64 { return p.inner.EvictionCount() }
func (p *LRUDoubleArrayPool) CurrentSize() int64   { return p.inner.CurrentSize() }
