package index

import (
	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/schema"
)

// DocumentHandle names one document column inside a slice. Handles are small
// values; copying them is cheap and they stay valid while the document is
// live in the index.
type DocumentHandle struct {
	slice *Slice
	index core.DocIndex
	id    core.DocId
}

// NewDocumentHandle builds a handle for an already-allocated column. It
// exists for tests and for rehydrating handles from the document map.
func NewDocumentHandle(slice *Slice, index core.DocIndex, id core.DocId) DocumentHandle {
	return DocumentHandle{slice: slice, index: index, id: id}
}

// Slice returns the slice holding the document.
func (h DocumentHandle) Slice() *Slice {
	return h.slice
}

// Index returns the document's column within its slice.
func (h DocumentHandle) Index() core.DocIndex {
	return h.index
}

// DocId returns the external document id.
func (h DocumentHandle) DocId() core.DocId {
	return h.id
}

// AddPosting records one term posting for the document.
func (h DocumentHandle) AddPosting(term core.Term) {
	h.slice.Shard().AddPosting(term, h.index, h.slice.Buffer())
}

// AssertFact sets or clears a fact bit for the document.
func (h DocumentHandle) AssertFact(fact core.FactHandle, value bool) error {
	return h.slice.Shard().AssertFact(fact, value, h.index, h.slice.Buffer())
}

// Activate sets the active-document bit for the column. The bit is already
// set by slice initialization; Activate is the ingestion-complete marker in
// the document state machine.
func (h DocumentHandle) Activate() {
	h.slice.Shard().setActiveBit(h.slice.Buffer(), h.index)
}

// Expire soft-deletes the document: the active-document bit is cleared so
// matchers stop returning the column, then the slice's expired count is
// bumped. When the slice just became fully expired the shard's reference is
// dropped, which queues the slice for recycling.
func (h DocumentHandle) Expire() error {
	h.slice.Shard().clearActiveBit(h.slice.Buffer(), h.index)

	fullyExpired, err := h.slice.ExpireDocument()
	if err != nil {
		return err
	}
	if fullyExpired {
		h.slice.DecRef()
	}
	return nil
}

// FixedSizeBlob returns the document's fixed-size blob slot.
func (h DocumentHandle) FixedSizeBlob(id schema.FixedSizeBlobId) []byte {
	return h.slice.Shard().DocTable().GetFixedSizeBlob(h.slice.Buffer(), h.index, id)
}

// AllocateVariableSizeBlob allocates the document's variable-size blob slot.
func (h DocumentHandle) AllocateVariableSizeBlob(id schema.VariableSizeBlobId, byteCount int) []byte {
	return h.slice.Shard().DocTable().AllocateVariableSizeBlob(h.slice.Buffer(), h.index, id, byteCount)
}

// VariableSizeBlob returns the document's variable-size blob slot, or nil
// when unallocated.
func (h DocumentHandle) VariableSizeBlob(id schema.VariableSizeBlobId) []byte {
	return h.slice.Shard().DocTable().GetVariableSizeBlob(h.slice.Buffer(), h.index, id)
}
