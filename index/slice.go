package index

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/sigdex/core"
)

// Slice is one fixed-capacity generation of documents inside a Shard, backed
// by a single pooled buffer.
//
// Document lifetime runs allocate -> commit -> expire, tracked by three
// counters with the invariant
//
//	unallocated + commitPending + committed == capacity
//	0 <= expired <= committed
//
// The slice itself stays alive while it is the active slice, while any
// DocumentMap entry points into it, or while a reader token could still
// reach its buffer. The refCount covers the first two; the recycler covers
// the last.
type Slice struct {
	shard    *Shard
	buffer   []byte
	capacity core.DocIndex

	mu            sync.Mutex
	unallocated   core.DocIndex
	commitPending core.DocIndex
	expired       core.DocIndex

	refCount atomic.Int32
}

func newSlice(shard *Shard) *Slice {
	s := &Slice{
		shard:       shard,
		buffer:      shard.allocateSliceBuffer(),
		capacity:    shard.SliceCapacity(),
		unallocated: shard.SliceCapacity(),
	}
	s.refCount.Store(1)

	// The trailing machine word of the buffer points back at the owning
	// Slice. The buffer never owns the Slice; strong references live in the
	// shard's published buffer list, so the raw word is safe to store.
	s.writeBackPointer()

	shard.DocTable().Initialize(s.buffer)
	for r := core.Rank(0); r <= core.MaxRank; r++ {
		shard.RowTable(r).Initialize(s.buffer, shard.TermTable())
	}

	return s
}

// Shard returns the owning shard.
func (s *Slice) Shard() *Shard {
	return s.shard
}

// Buffer returns the slice's backing buffer.
func (s *Slice) Buffer() []byte {
	return s.buffer
}

// Capacity returns the number of document columns in the slice.
func (s *Slice) Capacity() core.DocIndex {
	return s.capacity
}

// TryAllocateDocument hands out the next unallocated column. It returns
// false once every column has been allocated. Indexes are handed out in
// strictly increasing order.
func (s *Slice) TryAllocateDocument() (core.DocIndex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unallocated == 0 {
		return 0, false
	}

	index := s.capacity - s.unallocated
	s.unallocated--
	s.commitPending++
	return index, true
}

// CommitDocument marks one pending document as committed and reports whether
// the slice just became full (nothing unallocated, nothing pending) so the
// caller can trigger post-full housekeeping. Committing with no pending
// document is a programmer error.
func (s *Slice) CommitDocument() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shard.recordDocument()

	if s.commitPending == 0 {
		panic("slice: CommitDocument with no pending document")
	}
	s.commitPending--

	return s.unallocated+s.commitPending == 0
}

// ExpireDocument marks one committed document as expired and reports whether
// the slice just became fully expired. Only committed documents can expire.
func (s *Slice) ExpireDocument() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	committed := s.capacity - s.unallocated - s.commitPending
	if s.expired >= committed {
		return false, ErrNothingToExpire
	}
	s.expired++

	return s.expired == s.capacity, nil
}

// IsExpired reports whether every document in the slice has been expired.
func (s *Slice) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired == s.capacity
}

// IncRef adds a reference, e.g. for a backup writer walking the slice.
func (s *Slice) IncRef() {
	s.refCount.Add(1)
}

// DecRef drops a reference. On the transition to zero the slice is handed to
// the shard for recycling.
func (s *Slice) DecRef() {
	if n := s.refCount.Add(-1); n == 0 {
		if err := s.shard.RecycleSlice(s); err != nil {
			panic("slice: recycle on refcount zero: " + err.Error())
		}
	} else if n < 0 {
		panic("slice: refcount underflow")
	}
}

// destroy drops blob payloads and returns the buffer to the pool. Called by
// the recycler once the reader epoch has drained.
func (s *Slice) destroy() {
	s.shard.DocTable().Cleanup(s.buffer)
	s.shard.releaseSliceBuffer(s.buffer)
	s.buffer = nil
}

func (s *Slice) writeBackPointer() {
	offset := s.shard.SlicePtrOffset()
	*(**Slice)(unsafe.Pointer(&s.buffer[offset])) = s
}

// SliceFromBuffer recovers the owning Slice from any slice buffer, given the
// shard's back-pointer offset.
func SliceFromBuffer(buf []byte, slicePtrOffset int) *Slice {
	return *(**Slice)(unsafe.Pointer(&buf[slicePtrOffset]))
}

// sliceRecyclable defers slice destruction through the epoch recycler.
type sliceRecyclable struct {
	slice *Slice
}

func (r sliceRecyclable) Recycle() {
	r.slice.destroy()
}
