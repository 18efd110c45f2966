package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sigdex/allocator"
	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/epoch"
	"github.com/hupe1980/sigdex/schema"
	"github.com/hupe1980/sigdex/statistics"
	"github.com/hupe1980/sigdex/termtable"
)

func TestGetCapacityForByteSize(t *testing.T) {
	docSchema := schema.New()
	docSchema.RegisterVariableSizeBlob()
	docSchema.RegisterFixedSizeBlob(10)
	docSchema.Freeze()

	tests := []struct {
		name       string
		rowCounts  []core.RowIndex
		bufferSize int
	}{
		{name: "rank 0 only", rowCounts: []core.RowIndex{3}, bufferSize: 8192},
		{name: "rank 0 and 3", rowCounts: []core.RowIndex{4, 0, 0, 10}, bufferSize: 1 << 16},
		{name: "high rank", rowCounts: []core.RowIndex{2, 0, 0, 0, 0, 0, 20}, bufferSize: 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := termtable.NewFixed(tt.rowCounts, 1)
			quantum := core.DocumentsInRank0Row(1, table.MaxRankUsed())

			capacity := GetCapacityForByteSize(tt.bufferSize, docSchema, table)
			require.NotZero(t, capacity)
			assert.Zero(t, capacity%quantum, "capacity must be a whole number of quanta")

			// The unique capacity: it fits, one more quantum does not.
			assert.LessOrEqual(t, layoutSize(capacity, docSchema, table), tt.bufferSize)
			assert.Greater(t, layoutSize(capacity+quantum, docSchema, table), tt.bufferSize)
		})
	}
}

func TestGetCapacityForByteSizeTooSmall(t *testing.T) {
	docSchema := schema.New()
	docSchema.Freeze()
	table := termtable.NewFixed([]core.RowIndex{3}, 1)

	assert.Zero(t, GetCapacityForByteSize(64, docSchema, table))
}

func TestNewShardPanicsWhenBufferTooSmall(t *testing.T) {
	docSchema := schema.New()
	docSchema.Freeze()
	table := termtable.NewFixed([]core.RowIndex{3}, 1)
	tokens := epoch.NewTokenManager()
	recycler := epoch.NewRecycler(tokens)
	t.Cleanup(recycler.Stop)

	assert.Panics(t, func() {
		NewShard(0, recycler, table, docSchema, allocator.NewPool(64), nil)
	})
}

func TestShardCreatesSlicesOnDemand(t *testing.T) {
	f := newShardFixture(t, []core.RowIndex{3}, 1024, nil, nil)
	capacity := f.shard.SliceCapacity()

	first := f.shard.AllocateDocument(0)
	for i := core.DocIndex(1); i < capacity; i++ {
		handle := f.shard.AllocateDocument(core.DocId(i))
		assert.Same(t, first.Slice(), handle.Slice())
	}

	overflow := f.shard.AllocateDocument(core.DocId(capacity))
	assert.NotSame(t, first.Slice(), overflow.Slice())
	assert.Equal(t, core.DocIndex(0), overflow.Index())

	assert.Len(t, f.shard.SliceBuffers(), 2)
	assert.Equal(t, 2*1024, f.shard.UsedCapacityInBytes())
	assert.Equal(t, 2, f.pool.InUseCount())
}

func TestShardRecordsDocId(t *testing.T) {
	f := newShardFixture(t, []core.RowIndex{3}, 1024, nil, nil)

	handle := f.shard.AllocateDocument(9001)
	got := f.shard.DocTable().GetDocId(handle.Slice().Buffer(), handle.Index())
	assert.Equal(t, core.DocId(9001), got)
}

func TestShardAddPostingSetsTermRows(t *testing.T) {
	f := newShardFixture(t, []core.RowIndex{16, 0, 0, 4}, 1<<16, nil, nil)

	handle := f.shard.AllocateDocument(1)
	term := core.NewTerm("cat", 0)
	handle.AddPosting(term)

	rows := termtable.RowIdSequence(term, f.table)
	require.NotEmpty(t, rows)
	buf := handle.Slice().Buffer()
	for _, rowId := range rows {
		assert.True(t, f.shard.RowTable(rowId.Rank).GetBit(buf, rowId.Index, handle.Index()),
			"posting bit missing at rank %d row %d", rowId.Rank, rowId.Index)
	}
}

func TestShardAssertFact(t *testing.T) {
	f := newShardFixture(t, []core.RowIndex{16}, 2048, nil, nil)

	handle := f.shard.AllocateDocument(1)
	buf := handle.Slice().Buffer()

	fact := core.FactHandle(77)
	rows := termtable.RowIdSequence(core.NewFactTerm(fact), f.table)
	require.Len(t, rows, 1)

	require.NoError(t, handle.AssertFact(fact, true))
	assert.True(t, f.shard.RowTable(rows[0].Rank).GetBit(buf, rows[0].Index, handle.Index()))

	require.NoError(t, handle.AssertFact(fact, false))
	assert.False(t, f.shard.RowTable(rows[0].Rank).GetBit(buf, rows[0].Index, handle.Index()))
}

func TestShardAssertFactNoRows(t *testing.T) {
	// Only the system rows exist at rank 0, so facts cannot resolve.
	f := newShardFixture(t, []core.RowIndex{2}, 1024, nil, nil)

	handle := f.shard.AllocateDocument(1)

	err := handle.AssertFact(5, true)
	var factErr *ErrFactRowCount
	require.ErrorAs(t, err, &factErr)
	assert.Zero(t, factErr.RowCount)
}

func TestShardRecycleSliceRequiresExpiry(t *testing.T) {
	f := newShardFixture(t, []core.RowIndex{3}, 1024, nil, nil)

	handle := f.shard.AllocateDocument(1)
	handle.Slice().CommitDocument()

	err := f.shard.RecycleSlice(handle.Slice())
	assert.ErrorIs(t, err, ErrSliceNotExpired)
	assert.Len(t, f.shard.SliceBuffers(), 1)
}

func TestShardFrequencyTracking(t *testing.T) {
	freq := statistics.NewDocumentFrequencyTableBuilder()
	f := newShardFixture(t, []core.RowIndex{16}, 2048, nil, freq)

	handle := f.shard.AllocateDocument(1)
	handle.AddPosting(core.NewTerm("cat", 0))
	handle.AddPosting(core.NewTerm("dog", 0))
	handle.Slice().CommitDocument()

	assert.Equal(t, 1, freq.DocumentCount())
	assert.Len(t, freq.Entries(0), 2)
}

// badActiveTermTable expands the document-active term to a configurable row
// set to exercise shard construction errors.
type badActiveTermTable struct {
	termtable.TermTable
	rows []core.RowId
}

func (b *badActiveTermTable) RowIds(term core.Term) []core.RowId {
	if term == b.TermTable.DocumentActiveTerm() {
		return b.rows
	}
	return b.TermTable.RowIds(term)
}

func TestNewShardRejectsBadActiveTerm(t *testing.T) {
	docSchema := schema.New()
	docSchema.Freeze()
	tokens := epoch.NewTokenManager()
	recycler := epoch.NewRecycler(tokens)
	t.Cleanup(recycler.Stop)
	pool := allocator.NewPool(1024)
	inner := termtable.NewFixed([]core.RowIndex{3}, 1)

	tests := []struct {
		name string
		rows []core.RowId
		want error
	}{
		{name: "no rows", rows: nil, want: ErrNoActiveRow},
		{name: "two rows", rows: []core.RowId{{Rank: 0, Index: 0}, {Rank: 0, Index: 1}}, want: ErrMultipleActiveRows},
		{name: "wrong rank", rows: []core.RowId{{Rank: 3, Index: 0}}, want: ErrActiveRowNotRank0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &badActiveTermTable{TermTable: inner, rows: tt.rows}
			_, err := NewShard(0, recycler, table, docSchema, pool, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
