// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

import "sync"

// PageAllocator hands out and recycles fixed-size buffers. Implementations
// are layered the way the source layers SendBufferAllocator in front of
// SystemPageAllocator (spec §5 "Resource sharing"): each layer adds a
// cheaper reuse path and falls through to the one behind it on a miss.
type PageAllocator interface {
	PageSize() int
	Get() []byte
	Put(buf []byte)
}

// SystemAllocator is the baseline layer: every Get is a fresh make([]byte,
// n); Put is a no-op. Every allocator chain in this package bottoms out
// here, the Go equivalent of the source's SystemPageAllocator.
type SystemAllocator struct {
	pageSize int
}

// NewSystemAllocator creates a baseline allocator for pages of pageSize
// bytes.
func NewSystemAllocator(pageSize int) *SystemAllocator {
	return &SystemAllocator{pageSize: pageSize}
}

func (a *SystemAllocator) PageSize() int  { return a.pageSize }
func (a *SystemAllocator) Get() []byte    { return make([]byte, a.pageSize) }
func (a *SystemAllocator) Put(buf []byte) {}

// BatchAllocator amortizes allocation by carving pages out of larger
// backing blocks, falling through to next when its free list is
// exhausted — the source's page-allocator batching layer.
type BatchAllocator struct {
	mu    sync.Mutex
	free  [][]byte
	batch int
	next  PageAllocator
}

// NewBatchAllocator wraps next, allocating batch pages at a time from it
// whenever the free list runs dry.
func NewBatchAllocator(batch int, next PageAllocator) *BatchAllocator {
	if batch < 1 {
		batch = 1
	}
	return &BatchAllocator{batch: batch, next: next}
}

func (a *BatchAllocator) PageSize() int { return a.next.PageSize() }

func (a *BatchAllocator) Get() []byte {
	a.mu.Lock()
	if len(a.free) == 0 {
		a.mu.Unlock()
		pageSize := a.next.PageSize()
		block := make([]byte, pageSize*a.batch)
		fresh := make([][]byte, a.batch)
		for i := range fresh {
			fresh[i] = block[i*pageSize : (i+1)*pageSize : (i+1)*pageSize]
		}
		a.mu.Lock()
		a.free = append(a.free, fresh...)
	}
	buf := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.mu.Unlock()
	return buf
}

func (a *BatchAllocator) Put(buf []byte) {
	a.mu.Lock()
	a.free = append(a.free, buf[:a.next.PageSize():a.next.PageSize()])
	a.mu.Unlock()
}

// CachedAllocator is a per-process sync.Pool in front of next, the
// cheapest-to-hit layer in the chain (no mutex on the fast path).
type CachedAllocator struct {
	pool     sync.Pool
	pageSize int
}

// NewCachedAllocator wraps next with a sync.Pool cache.
func NewCachedAllocator(next PageAllocator) *CachedAllocator {
	return &CachedAllocator{
		pool:     sync.Pool{New: func() any { return next.Get() }},
		pageSize: next.PageSize(),
	}
}

func (a *CachedAllocator) PageSize() int { return a.pageSize }
func (a *CachedAllocator) Get() []byte   { return a.pool.Get().([]byte) }
func (a *CachedAllocator) Put(buf []byte) {
	// Restore full page length/capacity before pooling: callers may hand
	// back a shorter view (e.g. a partially filled receive buffer).
	a.pool.Put(buf[:a.pageSize:a.pageSize])
}

// DefaultAllocator builds the source's full layering — cached in front of
// batched in front of the plain syscall-backed baseline — for the given
// page size.
func DefaultAllocator(pageSize int) PageAllocator {
	return NewCachedAllocator(NewBatchAllocator(64, NewSystemAllocator(pageSize)))
}
