// Package schema describes the per-document payload slots stored in a slice
// buffer's doc table. A schema is built once, frozen, and then shared
// read-only by every shard.
package schema

// VariableSizeBlobId identifies a variable-size blob slot.
type VariableSizeBlobId int

// FixedSizeBlobId identifies a fixed-size blob slot.
type FixedSizeBlobId int

// DocumentDataSchema is an ordered registry of blob slots. Once frozen, slot
// ids are stable integers and no further registration is allowed.
type DocumentDataSchema struct {
	fixedSizes []int
	varCount   int
	frozen     bool
}

// New returns an empty, unfrozen schema.
func New() *DocumentDataSchema {
	return &DocumentDataSchema{}
}

// RegisterVariableSizeBlob adds a variable-size slot and returns its id.
func (s *DocumentDataSchema) RegisterVariableSizeBlob() VariableSizeBlobId {
	if s.frozen {
		panic("schema: RegisterVariableSizeBlob after Freeze")
	}
	id := VariableSizeBlobId(s.varCount)
	s.varCount++
	return id
}

// RegisterFixedSizeBlob adds a fixed-size slot of byteCount bytes and returns
// its id.
func (s *DocumentDataSchema) RegisterFixedSizeBlob(byteCount int) FixedSizeBlobId {
	if s.frozen {
		panic("schema: RegisterFixedSizeBlob after Freeze")
	}
	if byteCount <= 0 {
		panic("schema: fixed-size blob must have a positive size")
	}
	id := FixedSizeBlobId(len(s.fixedSizes))
	s.fixedSizes = append(s.fixedSizes, byteCount)
	return id
}

// Freeze seals the schema. Freeze is idempotent.
func (s *DocumentDataSchema) Freeze() {
	s.frozen = true
}

// Frozen reports whether the schema has been sealed.
func (s *DocumentDataSchema) Frozen() bool {
	return s.frozen
}

// VariableSizeBlobCount returns the number of variable-size slots.
func (s *DocumentDataSchema) VariableSizeBlobCount() int {
	return s.varCount
}

// FixedSizeBlobSizes returns the byte length of each fixed-size slot in
// registration order. The returned slice must not be mutated.
func (s *DocumentDataSchema) FixedSizeBlobSizes() []int {
	return s.fixedSizes
}
