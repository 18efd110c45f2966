package index

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/schema"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// DocTableDescriptor maps (docIndex, blob slot) pairs onto a slice buffer
// region. One descriptor is shared by every slice of a shard; all per-slice
// state lives in the buffer itself, except variable-size blob payloads, which
// live on the Go heap keyed by the owning buffer (the in-buffer slot word
// records only the blob length).
//
// Record layout: [docId u64][one length word per variable blob][fixed blobs].
type DocTableDescriptor struct {
	capacity     core.DocIndex
	baseOffset   int
	recordSize   int
	varCount     int
	fixedOffsets []int
	fixedSizes   []int

	mu    sync.Mutex
	blobs map[blobKey][]byte
}

type blobKey struct {
	base uintptr
	doc  core.DocIndex
	id   schema.VariableSizeBlobId
}

// docTableRecordSize returns the per-document record size for a schema.
func docTableRecordSize(s *schema.DocumentDataSchema) int {
	size := 8 + ptrSize*s.VariableSizeBlobCount()
	for _, n := range s.FixedSizeBlobSizes() {
		size += n
	}
	return size
}

// DocTableBufferSize returns the byte size of the doc table region for the
// given capacity and schema.
func DocTableBufferSize(capacity core.DocIndex, s *schema.DocumentDataSchema) int {
	return int(capacity) * docTableRecordSize(s)
}

// NewDocTableDescriptor lays out a doc table of the given capacity at
// baseOffset.
func NewDocTableDescriptor(capacity core.DocIndex, s *schema.DocumentDataSchema, baseOffset int) *DocTableDescriptor {
	d := &DocTableDescriptor{
		capacity:   capacity,
		baseOffset: baseOffset,
		recordSize: docTableRecordSize(s),
		varCount:   s.VariableSizeBlobCount(),
		fixedSizes: s.FixedSizeBlobSizes(),
		blobs:      make(map[blobKey][]byte),
	}

	offset := 8 + ptrSize*d.varCount
	d.fixedOffsets = make([]int, len(d.fixedSizes))
	for i, n := range d.fixedSizes {
		d.fixedOffsets[i] = offset
		offset += n
	}
	return d
}

// BufferSize returns the byte size of the doc table region.
func (d *DocTableDescriptor) BufferSize() int {
	return int(d.capacity) * d.recordSize
}

// Initialize zeroes the doc table region of buf.
func (d *DocTableDescriptor) Initialize(buf []byte) {
	region := buf[d.baseOffset : d.baseOffset+d.BufferSize()]
	for i := range region {
		region[i] = 0
	}
}

// Cleanup drops every variable-size blob attached to buf so the buffer can
// return to the pool without retaining document payloads.
func (d *DocTableDescriptor) Cleanup(buf []byte) {
	base := bufferBase(buf)

	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.blobs {
		if key.base == base {
			delete(d.blobs, key)
		}
	}
}

// SetDocId records the external document id for a column.
func (d *DocTableDescriptor) SetDocId(buf []byte, doc core.DocIndex, id core.DocId) {
	offset := d.recordOffset(doc)
	binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(id))
}

// GetDocId returns the external document id recorded for a column.
func (d *DocTableDescriptor) GetDocId(buf []byte, doc core.DocIndex) core.DocId {
	offset := d.recordOffset(doc)
	return core.DocId(binary.LittleEndian.Uint64(buf[offset : offset+8]))
}

// GetFixedSizeBlob returns the fixed-size blob slot for a column. The
// returned slice aliases the buffer.
func (d *DocTableDescriptor) GetFixedSizeBlob(buf []byte, doc core.DocIndex, id schema.FixedSizeBlobId) []byte {
	offset := d.recordOffset(doc) + d.fixedOffsets[id]
	return buf[offset : offset+d.fixedSizes[id] : offset+d.fixedSizes[id]]
}

// AllocateVariableSizeBlob allocates byteCount bytes for the slot, replacing
// any prior allocation.
func (d *DocTableDescriptor) AllocateVariableSizeBlob(buf []byte, doc core.DocIndex, id schema.VariableSizeBlobId, byteCount int) []byte {
	blob := make([]byte, byteCount)

	d.mu.Lock()
	d.blobs[blobKey{base: bufferBase(buf), doc: doc, id: id}] = blob
	d.mu.Unlock()

	offset := d.varSlotOffset(doc, id)
	binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(byteCount))
	return blob
}

// GetVariableSizeBlob returns the slot's current allocation, or nil when the
// slot has never been allocated for this column.
func (d *DocTableDescriptor) GetVariableSizeBlob(buf []byte, doc core.DocIndex, id schema.VariableSizeBlobId) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blobs[blobKey{base: bufferBase(buf), doc: doc, id: id}]
}

func (d *DocTableDescriptor) recordOffset(doc core.DocIndex) int {
	if doc >= d.capacity {
		panic("doctable: docIndex out of range")
	}
	return d.baseOffset + int(doc)*d.recordSize
}

func (d *DocTableDescriptor) varSlotOffset(doc core.DocIndex, id schema.VariableSizeBlobId) int {
	return d.recordOffset(doc) + 8 + ptrSize*int(id)
}

func bufferBase(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}
