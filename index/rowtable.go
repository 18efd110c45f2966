package index

import (
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/termtable"
)

// RowTableDescriptor maps (row, docIndex) pairs onto single bits of a slice
// buffer region. A rank-r row dedicates one bit to every 2^r consecutive
// documents, so a row occupies capacity / (8 * 2^r) bytes.
//
// Accessors are pure offset arithmetic over the buffer and never lock; bit
// mutation uses atomic word operations so concurrent writers to neighboring
// columns cannot lose updates.
type RowTableDescriptor struct {
	capacity   core.DocIndex
	rowCount   core.RowIndex
	rank       core.Rank
	baseOffset int
	rowBytes   int
}

// RowTableBufferSize returns the byte size of a row table region. The
// capacity must cover a whole number of 64-bit words per row at this rank.
func RowTableBufferSize(capacity core.DocIndex, rowCount core.RowIndex, rank core.Rank) int {
	return rowTableRowBytes(capacity, rank) * int(rowCount)
}

func rowTableRowBytes(capacity core.DocIndex, rank core.Rank) int {
	return int(capacity) / (8 << uint(rank))
}

// NewRowTableDescriptor lays out a row table at baseOffset. baseOffset must
// be 8-byte aligned for atomic access.
func NewRowTableDescriptor(capacity core.DocIndex, rowCount core.RowIndex, rank core.Rank, baseOffset int) RowTableDescriptor {
	if baseOffset%8 != 0 {
		panic("rowtable: base offset must be 8-byte aligned")
	}
	return RowTableDescriptor{
		capacity:   capacity,
		rowCount:   rowCount,
		rank:       rank,
		baseOffset: baseOffset,
		rowBytes:   rowTableRowBytes(capacity, rank),
	}
}

// Rank returns the rank of every row in this table.
func (r *RowTableDescriptor) Rank() core.Rank {
	return r.rank
}

// RowCount returns the number of rows in this table.
func (r *RowTableDescriptor) RowCount() core.RowIndex {
	return r.rowCount
}

// BufferSize returns the byte size of this table's region.
func (r *RowTableDescriptor) BufferSize() int {
	return r.rowBytes * int(r.rowCount)
}

// RowOffset returns the byte offset of a row within the slice buffer.
func (r *RowTableDescriptor) RowOffset(row core.RowIndex) int {
	if row >= r.rowCount {
		panic("rowtable: row out of range")
	}
	return r.baseOffset + int(row)*r.rowBytes
}

// Initialize zeroes the region, then fills the rows of the document-active
// and match-all terms with ones: documents start active, and the match-all
// row holds for the lifetime of the slice.
func (r *RowTableDescriptor) Initialize(buf []byte, table termtable.TermTable) {
	region := buf[r.baseOffset : r.baseOffset+r.BufferSize()]
	for i := range region {
		region[i] = 0
	}

	for _, term := range []core.Term{table.DocumentActiveTerm(), table.MatchAllTerm()} {
		for _, rowId := range termtable.RowIdSequence(term, table) {
			if rowId.Rank != r.rank {
				continue
			}
			row := buf[r.RowOffset(rowId.Index) : r.RowOffset(rowId.Index)+r.rowBytes]
			for i := range row {
				row[i] = 0xFF
			}
		}
	}
}

// SetBit sets the bit for docIndex in the given row.
func (r *RowTableDescriptor) SetBit(buf []byte, row core.RowIndex, doc core.DocIndex) {
	word, mask := r.locate(buf, row, doc)
	word.Or(mask)
}

// ClearBit clears the bit for docIndex in the given row.
func (r *RowTableDescriptor) ClearBit(buf []byte, row core.RowIndex, doc core.DocIndex) {
	word, mask := r.locate(buf, row, doc)
	word.And(^mask)
}

// GetBit reports the bit for docIndex in the given row.
func (r *RowTableDescriptor) GetBit(buf []byte, row core.RowIndex, doc core.DocIndex) bool {
	word, mask := r.locate(buf, row, doc)
	return word.Load()&mask != 0
}

// RowOnesCount returns the number of set bits in a row. It is a diagnostic
// helper; the count is only stable while no writer is active.
func (r *RowTableDescriptor) RowOnesCount(buf []byte, row core.RowIndex) int {
	offset := r.RowOffset(row)
	count := 0
	for i := 0; i < r.rowBytes; i += 8 {
		word := (*atomic.Uint64)(unsafe.Pointer(&buf[offset+i]))
		count += bits.OnesCount64(word.Load())
	}
	return count
}

func (r *RowTableDescriptor) locate(buf []byte, row core.RowIndex, doc core.DocIndex) (*atomic.Uint64, uint64) {
	if doc >= r.capacity {
		panic("rowtable: docIndex out of range")
	}
	bit := uint64(doc) >> uint(r.rank)
	offset := r.RowOffset(row) + int(bit/64)*8
	return (*atomic.Uint64)(unsafe.Pointer(&buf[offset])), uint64(1) << (bit % 64)
}
