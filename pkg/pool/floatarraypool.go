package pool

// floatArray is the Poolable wrapper around []float32 handed out by LRUFloatArrayPool.
type floatArray struct {
	buf []float32
}

func (a *floatArray) Clear() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

func (a *floatArray) Size() int64 { return int64(len(a.buf)) * 4 }

func (a *floatArray) Recycle() { a.buf = nil }

// LRUFloatArrayPool is a trivial specialization of Pool for []float32 buffers.
type LRUFloatArrayPool struct {
	inner *Pool[*floatArray]
}

// NewLRUFloatArrayPool constructs a float-array pool with the given byte budget.
func NewLRUFloatArrayPool(maxSize int64) *LRUFloatArrayPool {
	return &LRUFloatArrayPool{inner: New[*floatArray]("float_array", maxSize, func(size int) *floatArray {
		return &floatArray{buf: make([]float32, size)}
	})}
}

// Get returns a []float32 of length size, reused from the pool when possible.
func (p *LRUFloatArrayPool) Get(size int) []float32 { return p.inner.Get(size).buf }

// GetDirty is Get without zeroing a reused buffer first.
func (p *LRUFloatArrayPool) GetDirty(size int) []float32 { return p.inner.GetDirty(size).buf }

// Put returns buf to the pool.
func (p *LRUFloatArrayPool) Put(buf []float32) { p.inner.Put(&floatArray{buf: buf}) }

// ClearMemory evicts every buffer currently held by the pool.
func (p *LRUFloatArrayPool) ClearMemory() { p.inner.ClearMemory() }

// Release one-shot-latches the pool into recycle-on-put mode.
func (p *LRUFloatArrayPool) Release() { p.inner.Release() }

func (p *LRUFloatArrayPool) HitCount() int64      { return p.inner.HitCount() }
func (p *LRUFloatArrayPool) MissCount() int64     { return p.inner.MissCount() }
func (p *LRUFloatArrayPool) EvictionCount() int64 { return p.inner.EvictionCount() }
func (p *LRUFloatArrayPool) CurrentSize() int64   { return p.inner.CurrentSize() }
