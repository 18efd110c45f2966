package statistics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogramCounts(t *testing.T) {
	h := NewDocumentLengthHistogram()

	h.AddDocument(3)
	h.AddDocument(5)
	h.AddDocument(3)

	assert.Equal(t, 3, h.DocumentCount())
	assert.Equal(t, 11, h.PostingCount())
}

func TestHistogramWrite(t *testing.T) {
	h := NewDocumentLengthHistogram()
	h.AddDocument(5)
	h.AddDocument(3)
	h.AddDocument(3)

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))

	assert.Equal(t, "3,2\n5,1\n", buf.String())
}

func TestHistogramWriteEmpty(t *testing.T) {
	h := NewDocumentLengthHistogram()

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))
	assert.Empty(t, buf.String())
}
