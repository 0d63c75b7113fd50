package pool

// byteArray is the Poolable wrapper around []byte handed out by LRUByteArrayPool.
type byteArray struct {
	buf []byte
}

func (b *byteArray) Clear() {
	for i := range b.buf {
		b.buf[i] = 0
	}
}

func (b *byteArray) Size() int64 { return int64(len(b.buf)) }

func (b *byteArray) Recycle() { b.buf = nil }

// LRUByteArrayPool is a trivial specialization of Pool for []byte buffers.
type LRUByteArrayPool struct {
	inner *Pool[*byteArray]
}

// NewLRUByteArrayPool constructs a byte-array pool with the given byte budget.
func NewLRUByteArrayPool(maxSize int64) *LRUByteArrayPool {
	return &LRUByteArrayPool{inner: New[*byteArray]("byte_array", maxSize, func(size int) *byteArray {
		return &byteArray{buf: make([]byte, size)}
	})}
}

// Get returns a []byte of length size, reused from the pool when possible.
func (p *LRUByteArrayPool) Get(size int) []byte { return p.inner.Get(size).buf }

// GetDirty is Get without zeroing a reused buffer first.
func (p *LRUByteArrayPool) GetDirty(size int) []byte { return p.inner.GetDirty(size).buf }

// Put returns buf to the pool.
func (p *LRUByteArrayPool) Put(buf []byte) { p.inner.Put(&byteArray{buf: buf}) }

// ClearMemory evicts every buffer currently held by the pool.
func (p *LRUByteArrayPool) ClearMemory() { p.inner.ClearMemory() }

// Release one-shot-latches the pool into recycle-on-put mode.
func (p *LRUByteArrayPool) Release() { p.inner.Release() }

func (p *LRUByteArrayPool) HitCount() int64      { return p.inner.HitCount() }
func (p *LRUByteArrayPool) MissCount() int64     { return p.inner.MissCount() }
func (p *LRUByteArrayPool) EvictionCount() int64 { return p.inner.EvictionCount() }
func (p *LRUByteArrayPool) CurrentSize() int64   { return p.inner.CurrentSize() }
