package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sigdex/allocator"
	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/epoch"
	"github.com/hupe1980/sigdex/schema"
	"github.com/hupe1980/sigdex/statistics"
	"github.com/hupe1980/sigdex/termtable"
)

type shardFixture struct {
	shard    *Shard
	pool     *allocator.Pool
	recycler *epoch.Recycler
	tokens   *epoch.TokenManager
	table    *termtable.FixedTermTable
}

// newShardFixture builds a shard over a FixedTermTable with the given row
// counts per rank and buffer size. The schema is empty unless one is passed.
func newShardFixture(t *testing.T, rowCounts []core.RowIndex, bufferSize int, docSchema *schema.DocumentDataSchema, freq *statistics.DocumentFrequencyTableBuilder) *shardFixture {
	t.Helper()

	if docSchema == nil {
		docSchema = schema.New()
	}
	docSchema.Freeze()

	table := termtable.NewFixed(rowCounts, 1)
	pool := allocator.NewPool(bufferSize)
	tokens := epoch.NewTokenManager()
	recycler := epoch.NewRecycler(tokens)
	t.Cleanup(recycler.Stop)

	shard, err := NewShard(0, recycler, table, docSchema, pool, freq)
	require.NoError(t, err)

	return &shardFixture{
		shard:    shard,
		pool:     pool,
		recycler: recycler,
		tokens:   tokens,
		table:    table,
	}
}
