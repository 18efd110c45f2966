package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaRegistration(t *testing.T) {
	s := New()

	v0 := s.RegisterVariableSizeBlob()
	v1 := s.RegisterVariableSizeBlob()
	f0 := s.RegisterFixedSizeBlob(10)
	f1 := s.RegisterFixedSizeBlob(20)

	assert.Equal(t, VariableSizeBlobId(0), v0)
	assert.Equal(t, VariableSizeBlobId(1), v1)
	assert.Equal(t, FixedSizeBlobId(0), f0)
	assert.Equal(t, FixedSizeBlobId(1), f1)

	assert.Equal(t, 2, s.VariableSizeBlobCount())
	assert.Equal(t, []int{10, 20}, s.FixedSizeBlobSizes())
}

func TestSchemaFreeze(t *testing.T) {
	s := New()
	s.RegisterVariableSizeBlob()

	assert.False(t, s.Frozen())
	s.Freeze()
	assert.True(t, s.Frozen())

	assert.Panics(t, func() { s.RegisterVariableSizeBlob() })
	assert.Panics(t, func() { s.RegisterFixedSizeBlob(4) })

	// Idempotent.
	s.Freeze()
}

func TestSchemaRejectsNonPositiveFixedBlob(t *testing.T) {
	s := New()
	assert.Panics(t, func() { s.RegisterFixedSizeBlob(0) })
}
