package index

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/sigdex/allocator"
	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/epoch"
	"github.com/hupe1980/sigdex/schema"
	"github.com/hupe1980/sigdex/statistics"
	"github.com/hupe1980/sigdex/termtable"
)

// SliceBuffer pairs a published slice buffer with its owning Slice. The
// Slice reference keeps the owner reachable while a reader recovers it from
// the buffer's trailing back-pointer word.
type SliceBuffer struct {
	Buffer []byte
	Slice  *Slice
}

// sliceBufferList is an immutable snapshot of a shard's live buffers.
// Writers publish a fresh list; readers load the current pointer and iterate
// without locks under token protection.
type sliceBufferList struct {
	entries []SliceBuffer
}

// Shard owns one capacity bucket of the index: the active slice receiving
// new documents, the sealed slices behind it, and the row/doc table layout
// shared by all of them.
type Shard struct {
	id        core.ShardId
	recycler  *epoch.Recycler
	termTable termtable.TermTable
	alloc     allocator.SliceBufferAllocator

	activeRowId     core.RowId
	sliceCapacity   core.DocIndex
	sliceBufferSize int
	docTable        *DocTableDescriptor
	rowTables       []RowTableDescriptor

	slicesMu sync.Mutex
	active   *Slice
	buffers  atomic.Pointer[sliceBufferList]

	freqBuilder *statistics.DocumentFrequencyTableBuilder
}

// NewShard builds a shard over the given collaborators. The schema must be
// frozen. freqBuilder may be nil to disable document frequency tracking.
func NewShard(
	id core.ShardId,
	recycler *epoch.Recycler,
	table termtable.TermTable,
	docSchema *schema.DocumentDataSchema,
	alloc allocator.SliceBufferAllocator,
	freqBuilder *statistics.DocumentFrequencyTableBuilder,
) (*Shard, error) {
	if !docSchema.Frozen() {
		panic("shard: schema must be frozen before shards are created")
	}

	bufferSize := alloc.BufferSize()
	if bufferSize%8 != 0 {
		panic("shard: slice buffer size must be a multiple of 8")
	}

	activeRowId, err := rowIdForActiveDocument(table)
	if err != nil {
		return nil, err
	}

	capacity := GetCapacityForByteSize(bufferSize, docSchema, table)
	if capacity == 0 {
		panic("shard: slice buffer size too small for one capacity quantum")
	}

	s := &Shard{
		id:              id,
		recycler:        recycler,
		termTable:       table,
		alloc:           alloc,
		activeRowId:     activeRowId,
		sliceCapacity:   capacity,
		sliceBufferSize: bufferSize,
		freqBuilder:     freqBuilder,
	}
	s.docTable, s.rowTables = layoutDescriptors(capacity, docSchema, table)
	s.buffers.Store(&sliceBufferList{})

	return s, nil
}

// rowIdForActiveDocument resolves the single rank-0 row used to mark
// documents active or soft-deleted.
func rowIdForActiveDocument(table termtable.TermTable) (core.RowId, error) {
	rows := termtable.RowIdSequence(table.DocumentActiveTerm(), table)
	switch {
	case len(rows) == 0:
		return core.RowId{}, ErrNoActiveRow
	case len(rows) > 1:
		return core.RowId{}, ErrMultipleActiveRows
	case rows[0].Rank != 0:
		return core.RowId{}, ErrActiveRowNotRank0
	}
	return rows[0], nil
}

// layoutSize returns the buffer size needed for the given capacity. Row
// table regions are rounded up to 8-byte boundaries for atomic access; the
// trailing machine word holds the slice back-pointer.
func layoutSize(capacity core.DocIndex, docSchema *schema.DocumentDataSchema, table termtable.TermTable) int {
	offset := DocTableBufferSize(capacity, docSchema)
	for r := core.Rank(0); r <= core.MaxRank; r++ {
		offset = roundUp8(offset)
		offset += RowTableBufferSize(capacity, table.TotalRowCount(r), r)
	}
	return offset + ptrSize
}

func layoutDescriptors(capacity core.DocIndex, docSchema *schema.DocumentDataSchema, table termtable.TermTable) (*DocTableDescriptor, []RowTableDescriptor) {
	docTable := NewDocTableDescriptor(capacity, docSchema, 0)

	offset := DocTableBufferSize(capacity, docSchema)
	rowTables := make([]RowTableDescriptor, 0, core.MaxRank+1)
	for r := core.Rank(0); r <= core.MaxRank; r++ {
		offset = roundUp8(offset)
		rowTables = append(rowTables, NewRowTableDescriptor(capacity, table.TotalRowCount(r), r, offset))
		offset += RowTableBufferSize(capacity, table.TotalRowCount(r), r)
	}
	return docTable, rowTables
}

func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// GetCapacityForByteSize returns the largest capacity, in quanta of
// DocumentsInRank0Row(1, maxRankUsed), whose layout fits bufferSize. It
// returns 0 when not even one quantum fits.
func GetCapacityForByteSize(bufferSize int, docSchema *schema.DocumentDataSchema, table termtable.TermTable) core.DocIndex {
	quantum := core.DocumentsInRank0Row(1, table.MaxRankUsed())

	capacity := core.DocIndex(0)
	for {
		next := capacity + quantum
		if layoutSize(next, docSchema, table) > bufferSize {
			break
		}
		capacity = next
	}
	return capacity
}

// Id returns the shard's id.
func (s *Shard) Id() core.ShardId {
	return s.id
}

// TermTable returns the shared term table.
func (s *Shard) TermTable() termtable.TermTable {
	return s.termTable
}

// DocTable returns the doc table descriptor shared by every slice.
func (s *Shard) DocTable() *DocTableDescriptor {
	return s.docTable
}

// RowTable returns the row table descriptor for a rank.
func (s *Shard) RowTable(rank core.Rank) *RowTableDescriptor {
	return &s.rowTables[rank]
}

// SliceCapacity returns the number of document columns per slice.
func (s *Shard) SliceCapacity() core.DocIndex {
	return s.sliceCapacity
}

// SliceBufferSize returns the configured buffer size.
func (s *Shard) SliceBufferSize() int {
	return s.sliceBufferSize
}

// SlicePtrOffset returns the offset of the slice back-pointer word.
func (s *Shard) SlicePtrOffset() int {
	return s.sliceBufferSize - ptrSize
}

// DocumentActiveRowId returns the soft-delete row.
func (s *Shard) DocumentActiveRowId() core.RowId {
	return s.activeRowId
}

// SliceBuffers returns the current published buffer list. The returned slice
// is immutable; callers iterating it must hold a token.
func (s *Shard) SliceBuffers() []SliceBuffer {
	return s.buffers.Load().entries
}

// UsedCapacityInBytes reports the bytes held by published buffers. Buffers
// retired but not yet recycled count until the published list drops them.
func (s *Shard) UsedCapacityInBytes() int {
	return len(s.SliceBuffers()) * s.sliceBufferSize
}

// AllocateDocument reserves a column for the document, creating a new active
// slice when the current one is out of space.
func (s *Shard) AllocateDocument(id core.DocId) DocumentHandle {
	s.slicesMu.Lock()
	defer s.slicesMu.Unlock()

	var (
		index core.DocIndex
		ok    bool
	)
	if s.active != nil {
		index, ok = s.active.TryAllocateDocument()
	}
	if !ok {
		s.createNewActiveSliceLocked()
		if index, ok = s.active.TryAllocateDocument(); !ok {
			panic("shard: newly created slice has no space")
		}
	}

	slice := s.active
	s.docTable.SetDocId(slice.Buffer(), index, id)

	return DocumentHandle{slice: slice, index: index, id: id}
}

// createNewActiveSliceLocked swaps in a fresh slice and publishes a new
// buffer list. Readers still iterating the old list keep it alive through
// their own reference; the garbage collector reclaims it once they depart.
func (s *Shard) createNewActiveSliceLocked() {
	slice := newSlice(s)

	old := s.buffers.Load()
	entries := make([]SliceBuffer, len(old.entries), len(old.entries)+1)
	copy(entries, old.entries)
	entries = append(entries, SliceBuffer{Buffer: slice.Buffer(), Slice: slice})

	s.buffers.Store(&sliceBufferList{entries: entries})
	s.active = slice
}

// RecycleSlice removes a fully expired slice from the published list and
// schedules its destruction for after the reader epoch drains.
func (s *Shard) RecycleSlice(slice *Slice) error {
	s.slicesMu.Lock()

	if !slice.IsExpired() {
		s.slicesMu.Unlock()
		return ErrSliceNotExpired
	}

	old := s.buffers.Load()
	entries := make([]SliceBuffer, 0, len(old.entries))
	for _, e := range old.entries {
		if e.Slice != slice {
			entries = append(entries, e)
		}
	}
	if len(entries) != len(old.entries)-1 {
		s.slicesMu.Unlock()
		return ErrSliceBufferNotFound
	}

	s.buffers.Store(&sliceBufferList{entries: entries})
	if s.active == slice {
		s.active = nil
	}
	s.slicesMu.Unlock()

	// Scheduling happens outside the lock; the recycler may block briefly on
	// its bounded queue.
	s.recycler.Schedule(sliceRecyclable{slice: slice})
	return nil
}

// AddPosting flips the term's row bits for the document column in buf.
func (s *Shard) AddPosting(term core.Term, doc core.DocIndex, buf []byte) {
	if s.freqBuilder != nil {
		s.freqBuilder.OnTerm(term)
	}

	for _, rowId := range termtable.RowIdSequence(term, s.termTable) {
		s.rowTables[rowId.Rank].SetBit(buf, rowId.Index, doc)
	}
}

// AssertFact sets or clears the fact's single row bit for the document
// column in buf. A fact expanding to zero or multiple rows is an error.
func (s *Shard) AssertFact(fact core.FactHandle, value bool, doc core.DocIndex, buf []byte) error {
	rows := termtable.RowIdSequence(core.NewFactTerm(fact), s.termTable)
	if len(rows) != 1 {
		return &ErrFactRowCount{Fact: fact, RowCount: len(rows)}
	}

	table := &s.rowTables[rows[0].Rank]
	if value {
		table.SetBit(buf, rows[0].Index, doc)
	} else {
		table.ClearBit(buf, rows[0].Index, doc)
	}
	return nil
}

// recordDocument feeds the frequency builder on document commit.
func (s *Shard) recordDocument() {
	if s.freqBuilder != nil {
		s.freqBuilder.OnDocumentEnter()
	}
}

// WriteDocumentFrequencyTable emits the shard's term frequency CSV.
func (s *Shard) WriteDocumentFrequencyTable(w io.Writer, truncateBelowFrequency float64) error {
	if s.freqBuilder == nil {
		return nil
	}
	return s.freqBuilder.WriteFrequencies(w, truncateBelowFrequency)
}

// WriteIndexedIdfTable emits the shard's binary idf table.
func (s *Shard) WriteIndexedIdfTable(w io.Writer, truncateBelowFrequency float64) error {
	if s.freqBuilder == nil {
		return nil
	}
	return s.freqBuilder.WriteIndexedIdfTable(w, truncateBelowFrequency)
}

// WriteCumulativeTermCounts emits the shard's cumulative term count CSV.
func (s *Shard) WriteCumulativeTermCounts(w io.Writer) error {
	if s.freqBuilder == nil {
		return nil
	}
	return s.freqBuilder.WriteCumulativeTermCounts(w)
}

func (s *Shard) allocateSliceBuffer() []byte {
	return s.alloc.Allocate(s.sliceBufferSize)
}

func (s *Shard) releaseSliceBuffer(buf []byte) {
	s.alloc.Release(buf)
}

// setActiveBit marks the column as active.
func (s *Shard) setActiveBit(buf []byte, doc core.DocIndex) {
	s.rowTables[s.activeRowId.Rank].SetBit(buf, s.activeRowId.Index, doc)
}

// clearActiveBit soft-deletes the column.
func (s *Shard) clearActiveBit(buf []byte, doc core.DocIndex) {
	s.rowTables[s.activeRowId.Rank].ClearBit(buf, s.activeRowId.Index, doc)
}
