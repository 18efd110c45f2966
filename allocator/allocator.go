// Package allocator hands out the fixed-size raw buffers that back slices.
//
// All buffers share a single configured size, so released buffers are pooled
// and reused verbatim. Buffers are 64-byte aligned for atomic and SIMD access
// to the row tables.
package allocator

import (
	"fmt"
	"sync"
	"unsafe"
)

// Alignment is the byte alignment of every buffer handed out.
const Alignment = 64

// SliceBufferAllocator allocates and recycles slice buffers.
type SliceBufferAllocator interface {
	// Allocate returns a buffer of exactly the configured size. Passing any
	// other size is a programmer error and panics.
	Allocate(size int) []byte

	// Release returns a buffer to the pool. Each buffer must be released
	// exactly once per Allocate; releasing twice or releasing a foreign
	// buffer panics.
	Release(buf []byte)

	// BufferSize returns the configured buffer size.
	BufferSize() int

	// InUseCount returns the number of buffers currently allocated and not
	// yet released.
	InUseCount() int
}

// Pool is the standard SliceBufferAllocator. Released buffers are kept on a
// free list and handed out again without zeroing; slice initialization owns
// clearing the regions it uses.
type Pool struct {
	bufferSize int

	mu    sync.Mutex
	free  [][]byte
	inUse map[uintptr]struct{}
}

var _ SliceBufferAllocator = (*Pool)(nil)

// NewPool creates a Pool that hands out buffers of bufferSize bytes.
func NewPool(bufferSize int) *Pool {
	if bufferSize < int(unsafe.Sizeof(uintptr(0))) {
		panic("allocator: buffer size smaller than one pointer")
	}
	return &Pool{
		bufferSize: bufferSize,
		inUse:      make(map[uintptr]struct{}),
	}
}

// Allocate implements SliceBufferAllocator.
func (p *Pool) Allocate(size int) []byte {
	if size != p.bufferSize {
		panic(fmt.Sprintf("allocator: requested %d bytes from a %d-byte pool", size, p.bufferSize))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var buf []byte
	if n := len(p.free); n > 0 {
		buf = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	} else {
		buf = allocAligned(p.bufferSize)
	}

	p.inUse[bufferKey(buf)] = struct{}{}
	return buf
}

// Release implements SliceBufferAllocator.
func (p *Pool) Release(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := bufferKey(buf)
	if _, ok := p.inUse[key]; !ok {
		panic("allocator: Release of a buffer that is not in use")
	}
	delete(p.inUse, key)
	p.free = append(p.free, buf)
}

// BufferSize implements SliceBufferAllocator.
func (p *Pool) BufferSize() int {
	return p.bufferSize
}

// InUseCount implements SliceBufferAllocator.
func (p *Pool) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// FreeCount returns the number of pooled buffers awaiting reuse.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func bufferKey(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// allocAligned over-allocates and reslices so the first byte sits on an
// Alignment boundary. The backing array is kept alive by the returned slice.
func allocAligned(size int) []byte {
	raw := make([]byte, size+Alignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)
	return raw[offset : offset+uintptr(size) : offset+uintptr(size)]
}
