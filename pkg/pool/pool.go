package pool

import "sync"

// Pool is a size-indexed, byte-budgeted LRU of recyclable values. Every entry point is
// monitor-synchronized on the pool instance (spec.md §5); Release additionally takes a second
// inner latch so at most one active→released transition happens and Put-after-release always
// recycles rather than racing a concurrent Release.
type Pool[V Poolable] struct {
	mu sync.Mutex

	name    string
	maxSize int64
	factory func(size int) V

	strategy    *SizeStrategy[V]
	currentSize int64

	hitCount      int64
	missCount     int64
	evictionCount int64

	releaseMu sync.Mutex
	released  bool
}

// New constructs a Pool with the given byte budget and value factory. name is used only to
// label Prometheus metrics.
func New[V Poolable](name string, maxSize int64, factory func(size int) V) *Pool[V] {
	return &Pool[V]{name: name, maxSize: maxSize, factory: factory, strategy: newSizeStrategy[V]()}
}

// Get returns a value for size, preferring a pooled value at that exact size. A reused value is
// Clear()ed before being returned; a freshly allocated one is not (there's nothing to clear).
func (p *Pool[V]) Get(size int) V {
	return p.get(size, true)
}

// GetDirty is Get without the Clear() call, for callers about to overwrite the entire value
// anyway.
func (p *Pool[V]) GetDirty(size int) V {
	return p.get(size, false)
}

func (p *Pool[V]) get(size int, clear bool) V {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.strategy.get(size); ok {
		p.currentSize -= v.Size()
		bytesGauge.WithLabelValues(p.name).Set(float64(p.currentSize))
		p.hitCount++
		hitsTotal.WithLabelValues(p.name).Inc()
		if clear {
			v.Clear()
		}
		return v
	}

	p.missCount++
	missesTotal.WithLabelValues(p.name).Inc()
	return p.factory(size)
}

// Put returns value to the pool. If the pool has been released, value is recycled immediately
// and discarded instead. Otherwise it's added to the strategy and, if that pushes the pool over
// its byte budget, values are evicted through the strategy's removeLast until it's back under
// budget.
func (p *Pool[V]) Put(value V) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		value.Recycle()
		return
	}

	size := int(value.Size())
	p.strategy.put(size, value)
	p.currentSize += value.Size()
	bytesGauge.WithLabelValues(p.name).Set(float64(p.currentSize))

	for p.currentSize > p.maxSize && p.strategy.len() > 0 {
		_, evicted, ok := p.strategy.removeLast()
		if !ok {
			break
		}
		p.currentSize -= evicted.Size()
		p.evictionCount++
		evictionsTotal.WithLabelValues(p.name).Inc()
		evicted.Recycle()
	}
	bytesGauge.WithLabelValues(p.name).Set(float64(p.currentSize))
}

// ClearMemory evicts every value currently held by the pool, recycling each one.
func (p *Pool[V]) ClearMemory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictAllLocked()
}

func (p *Pool[V]) evictAllLocked() {
	for {
		_, v, ok := p.strategy.removeLast()
		if !ok {
			break
		}
		p.currentSize -= v.Size()
		v.Recycle()
	}
	bytesGauge.WithLabelValues(p.name).Set(0)
}

// Release is a one-shot latch: the first call evicts every pooled value and marks the pool
// released, so that every subsequent Put recycles its argument immediately instead of pooling
// it. Subsequent calls are no-ops.
func (p *Pool[V]) Release() {
	p.releaseMu.Lock()
	defer p.releaseMu.Unlock()
	if p.released {
		return
	}

	p.mu.Lock()
	p.evictAllLocked()
	p.released = true
	p.mu.Unlock()
}

// HitCount returns the number of Get/GetDirty calls satisfied from the pool so far.
func (p *Pool[V]) HitCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hitCount
}

// MissCount returns the number of Get/GetDirty calls that allocated a fresh value so far.
func (p *Pool[V]) MissCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.missCount
}

// EvictionCount returns the number of values evicted to stay within budget so far.
func (p *Pool[V]) EvictionCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evictionCount
}

// CurrentSize returns the total byte size of values currently held by the pool.
func (p *Pool[V]) CurrentSize() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentSize
}
